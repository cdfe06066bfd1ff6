// Package app wires the negotiation core to its adapters: the synthetic
// camera, the render surface, the web control surface, and the diagnostic
// trace sink.
package app

import (
	"context"
	"fmt"

	"github.com/pion/webrtc/v4"

	"github.com/givliano/open-drop/internal/config"
	"github.com/givliano/open-drop/internal/media"
	"github.com/givliano/open-drop/internal/render"
	"github.com/givliano/open-drop/internal/rtc"
	"github.com/givliano/open-drop/internal/session"
	"github.com/givliano/open-drop/internal/ui"
	"github.com/givliano/open-drop/internal/util"
)

// Call bundles one loopback call's controller and adapters.
type Call struct {
	cfg        config.Config
	tracer     *util.Tracer
	controller *session.Controller
	surface    *render.Surface
	server     *ui.Server
}

// New assembles a call from the configuration. ctx bounds the lifetime of
// everything the call spawns (relay lanes, track consumers, the control
// server).
func New(ctx context.Context, cfg config.Config) *Call {
	tracer := util.NewTracer()
	tracer.Subscribe(func(line string) {
		util.LogInfo("%s", line)
	})

	surface := render.NewSurface(tracer)
	camera := &media.SyntheticCamera{
		Width:     cfg.Width,
		Height:    cfg.Height,
		FrameRate: cfg.FrameRate,
	}

	// The remote endpoint feeds its incoming track to the remote display
	// slot; everything else about the two peers is symmetric.
	links := func(id session.EndpointID) (session.Link, error) {
		peer, err := rtc.New(cfg.STUN)
		if err != nil {
			return nil, err
		}
		if id == session.EndpointRemote {
			peer.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
				surface.AttachRemote(ctx, track, peer.WriteRTCP)
			})
		}
		return peer, nil
	}

	constraints := media.Constraints{Video: cfg.Video, Audio: cfg.Audio}
	controller := session.NewController(camera, links, constraints, tracer)

	c := &Call{
		cfg:        cfg,
		tracer:     tracer,
		controller: controller,
		surface:    surface,
	}

	if cfg.HTTPAddr != "" {
		c.server = ui.NewServer(ui.Triggers{
			Start:   func() error { return c.Start(ctx) },
			Connect: func() error { return c.Connect(ctx) },
			Hangup:  c.Hangup,
		})
		c.wireBroadcasts()
	}

	return c
}

// Start acquires local media and assigns it to the local display slot.
func (c *Call) Start(ctx context.Context) error {
	if err := c.controller.Start(ctx); err != nil {
		return err
	}
	c.surface.AttachLocal(c.cfg.Width, c.cfg.Height)
	c.broadcastSession(c.controller.State())
	return nil
}

// Connect drives the offer/answer handshake between the two endpoints.
func (c *Call) Connect(ctx context.Context) error {
	c.surface.MarkNegotiationStart()
	return c.controller.Connect(ctx)
}

// Hangup ends the call. Safe to invoke at any point, including twice.
func (c *Call) Hangup() {
	c.controller.Hangup()
}

// Connected returns a channel closed once both endpoints report connected.
func (c *Call) Connected() <-chan struct{} {
	return c.controller.Connected()
}

// State returns the session state.
func (c *Call) State() session.State {
	return c.controller.State()
}

// ServeControl starts the web control surface and blocks serving it until
// ctx is cancelled. Only valid when the configuration names an HTTP address.
func (c *Call) ServeControl(ctx context.Context) error {
	if c.server == nil {
		return fmt.Errorf("no control surface address configured")
	}

	port, err := c.server.Start(c.cfg.HTTPAddr)
	if err != nil {
		return err
	}
	defer c.server.Close()

	util.LogSuccess("control surface at http://127.0.0.1:%d", port)
	c.server.Run(ctx)
	return nil
}

// RunAuto executes the whole call without user interaction: start, connect,
// hold the call until ctx is cancelled, hang up.
func (c *Call) RunAuto(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}

	select {
	case <-c.Connected():
		util.LogSuccess("both peers connected")
	case <-ctx.Done():
		c.Hangup()
		return ctx.Err()
	}

	<-ctx.Done()
	c.Hangup()
	return nil
}

// wireBroadcasts forwards trace lines, session/endpoint state, and display
// events to the control page.
func (c *Call) wireBroadcasts() {
	c.tracer.Subscribe(func(line string) {
		c.server.Broadcast(ui.Message{Type: ui.MsgTypeLog, Text: line})
	})
	c.controller.OnSessionState(c.broadcastSession)
	c.controller.OnEndpointState(func(id session.EndpointID, state session.EndpointState) {
		c.server.Broadcast(ui.Message{
			Type:     ui.MsgTypeEndpoint,
			Endpoint: string(id),
			State:    state.String(),
		})
	})
	c.surface.OnEvent(func(ev render.Event) {
		c.server.Broadcast(ui.Message{
			Type:   ui.MsgTypeFrame,
			Slot:   string(ev.Slot),
			Kind:   string(ev.Kind),
			Width:  ev.Width,
			Height: ev.Height,
		})
	})
}

// broadcastSession publishes the session state plus the media-ready gate the
// page's connect button keys off.
func (c *Call) broadcastSession(state session.State) {
	if c.server == nil {
		return
	}
	c.server.Broadcast(ui.Message{
		Type:       ui.MsgTypeSession,
		State:      state.String(),
		MediaReady: c.controller.MediaReady(),
	})
}
