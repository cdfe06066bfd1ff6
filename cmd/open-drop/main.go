// open-drop — CLI entry point.
//
// This tool demonstrates a peer-to-peer video call negotiated entirely within
// one process: two pion peer connections exchange their offer, answer, and
// ICE candidates through an in-memory relay instead of a signaling server.
//
// It can be launched interactively (a pterm menu drives start/connect/hangup),
// non-interactively (-auto runs the whole call), or with a local web control
// page (-http).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/pterm/pterm"

	"github.com/givliano/open-drop/internal/app"
	"github.com/givliano/open-drop/internal/config"
	"github.com/givliano/open-drop/internal/util"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// CLI flags.
	auto := flag.Bool("auto", false, "Run start → connect automatically and hold the call")
	httpAddr := flag.String("http", "", "Serve the web control page on this address (e.g. 127.0.0.1:8080)")
	width := flag.Int("width", 640, "Capture width in pixels")
	height := flag.Int("height", 480, "Capture height in pixels")
	fps := flag.Int("fps", 30, "Capture frame rate")
	audio := flag.Bool("audio", false, "Request audio capture (the synthetic camera refuses it)")
	stun := flag.Bool("stun", false, "Gather STUN server-reflexive candidates (not needed for loopback)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("open-drop — v%s", version))
	pterm.Println()

	cfg := config.Default()
	cfg.Width = *width
	cfg.Height = *height
	cfg.FrameRate = *fps
	cfg.Audio = *audio
	cfg.STUN = *stun
	cfg.HTTPAddr = *httpAddr
	cfg.Auto = *auto

	if cfg.Width < 1 || cfg.Height < 1 || cfg.FrameRate < 1 {
		util.LogError("invalid capture parameters: %dx%d @ %d fps", cfg.Width, cfg.Height, cfg.FrameRate)
		os.Exit(1)
	}

	call := app.New(ctx, cfg)
	util.StartStatsReporter(ctx)

	switch {
	case cfg.HTTPAddr != "":
		if err := call.ServeControl(ctx); err != nil {
			util.LogError("control surface failed: %v", err)
			os.Exit(1)
		}
		call.Hangup()

	case cfg.Auto:
		if err := call.RunAuto(ctx); err != nil && ctx.Err() == nil {
			util.LogError("call failed: %v", err)
			os.Exit(1)
		}

	default:
		runInteractive(ctx, call)
	}

	util.LogInfo("call ended")
}

// runInteractive drives the call from a menu: each selection maps 1:1 to a
// controller operation.
func runInteractive(ctx context.Context, call *app.Call) {
	for ctx.Err() == nil {
		choice, _ := pterm.DefaultInteractiveSelect.
			WithOptions([]string{
				"Start    — Acquire local media",
				"Connect  — Negotiate the loopback call",
				"Hang up  — End the call",
				"Quit",
			}).
			WithDefaultText(fmt.Sprintf("Session: %s", call.State())).
			Show()

		pterm.Println()

		switch {
		case strings.HasPrefix(choice, "Start"):
			if err := call.Start(ctx); err != nil {
				util.LogError("%v", err)
			}

		case strings.HasPrefix(choice, "Connect"):
			if err := call.Connect(ctx); err != nil {
				util.LogError("%v", err)
			}

		case strings.HasPrefix(choice, "Hang up"):
			call.Hangup()

		default:
			call.Hangup()
			return
		}
	}
}
