package ui

import (
	"context"
	_ "embed"
	"fmt"
	"net"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/givliano/open-drop/internal/util"
)

//go:embed index.html
var indexPage []byte

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// outboxSize bounds the queued outbound events; a slow or absent page drops
// the oldest behaviorally uninteresting case (log lines) rather than block
// the call.
const outboxSize = 256

// Triggers maps the page's three controls onto controller operations.
// Start/Connect may block for the duration of the operation; the server
// invokes them off the read loop.
type Triggers struct {
	Start   func() error
	Connect func() error
	Hangup  func()
}

// Server is the HTTP + WebSocket server behind the control page. One page
// connection is served at a time; a new connection replaces a dead one.
type Server struct {
	triggers Triggers
	listener net.Listener
	connCh   chan *websocket.Conn
	outbox   chan Message
}

// NewServer creates a Server wired to the given triggers.
func NewServer(triggers Triggers) *Server {
	return &Server{
		triggers: triggers,
		connCh:   make(chan *websocket.Conn, 1),
		outbox:   make(chan Message, outboxSize),
	}
}

// Start begins listening on addr (":0" picks a random port) and returns the
// assigned port number.
func (s *Server) Start(addr string) (int, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("failed to start control server: %w", err)
	}
	s.listener = listener
	port := listener.Addr().(*net.TCPAddr).Port

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWS)

	go func() {
		_ = http.Serve(listener, mux)
	}()

	return port, nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	// Only hold one pending page connection.
	select {
	case s.connCh <- conn:
	default:
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "already connected"))
		conn.Close()
	}
}

// Run serves page connections until ctx is cancelled: for each connection it
// starts the single-writer event loop and dispatches inbound triggers until
// the page goes away.
func (s *Server) Run(ctx context.Context) {
	for {
		select {
		case conn := <-s.connCh:
			s.serve(ctx, conn)
		case <-ctx.Done():
			return
		}
	}
}

// serve handles one page connection.
func (s *Server) serve(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()
	util.LogDebug("control page connected from %s", conn.RemoteAddr())

	cCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Single-writer goroutine draining the outbox.
	go func() {
		for {
			select {
			case msg := <-s.outbox:
				if err := conn.WriteJSON(msg); err != nil {
					cancel()
					return
				}
			case <-cCtx.Done():
				return
			}
		}
	}()

	// Read loop: dispatch triggers. Exits on page disconnect.
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			util.LogDebug("control page disconnected: %v", err)
			return
		}
		s.dispatch(msg)

		if cCtx.Err() != nil {
			return
		}
	}
}

// dispatch runs a trigger off the read loop so a long handshake does not
// stall later triggers (hangup must stay reachable mid-negotiation).
func (s *Server) dispatch(msg Message) {
	switch msg.Type {
	case MsgTypeStart:
		go s.report(s.triggers.Start())
	case MsgTypeConnect:
		go s.report(s.triggers.Connect())
	case MsgTypeHangup:
		go s.triggers.Hangup()
	default:
		util.LogWarning("unknown control message type: %q", msg.Type)
	}
}

// report broadcasts a trigger's failure back to the page.
func (s *Server) report(err error) {
	if err != nil {
		s.Broadcast(Message{Type: MsgTypeError, Text: err.Error()})
	}
}

// Broadcast enqueues an event for the page. Never blocks; when the outbox is
// full the event is dropped.
func (s *Server) Broadcast(msg Message) {
	select {
	case s.outbox <- msg:
	default:
		util.LogDebug("control outbox full, dropping %s event", msg.Type)
	}
}

// Close shuts down the listener, preventing new page connections.
func (s *Server) Close() {
	if s.listener != nil {
		s.listener.Close()
	}
}
