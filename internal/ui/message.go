// Package ui serves the web control surface: a local page whose three call
// controls drive the session controller over a WebSocket, and which receives
// session state and diagnostic events back on the same connection.
package ui

// MessageType identifies the kind of control-surface message.
type MessageType string

const (
	// Inbound triggers from the page.
	MsgTypeStart   MessageType = "start"
	MsgTypeConnect MessageType = "connect"
	MsgTypeHangup  MessageType = "hangup"

	// Outbound events to the page.
	MsgTypeLog      MessageType = "log"
	MsgTypeSession  MessageType = "session"
	MsgTypeEndpoint MessageType = "endpoint"
	MsgTypeFrame    MessageType = "frame"
	MsgTypeError    MessageType = "error"
)

// Message is the JSON structure exchanged with the control page.
type Message struct {
	Type MessageType `json:"type"`

	// MsgTypeLog / MsgTypeError.
	Text string `json:"text,omitempty"`

	// MsgTypeSession / MsgTypeEndpoint.
	State      string `json:"state,omitempty"`
	MediaReady bool   `json:"mediaReady,omitempty"`
	Endpoint   string `json:"endpoint,omitempty"`

	// MsgTypeFrame.
	Slot   string `json:"slot,omitempty"`
	Kind   string `json:"kind,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}
