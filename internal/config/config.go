// Package config holds the call configuration types.
package config

// Config stores all parameters gathered from CLI flags or the interactive
// prompts.
type Config struct {
	Video bool // capture a video track from the device adapter
	Audio bool // capture an audio track (the synthetic camera refuses this)

	Width     int // captured frame width in pixels
	Height    int // captured frame height in pixels
	FrameRate int // captured frames per second

	STUN bool // include the public STUN servers; off is fine for a loopback call

	HTTPAddr string // web control surface listen address; empty disables it
	Auto     bool   // run start → connect → hangup without user interaction
}

// Default returns the configuration for a plain loopback video call.
func Default() Config {
	return Config{
		Video:     true,
		Audio:     false,
		Width:     640,
		Height:    480,
		FrameRate: 30,
	}
}
