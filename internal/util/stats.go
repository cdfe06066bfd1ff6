package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide negotiation/session counter.
var Stats = &stats{}

type stats struct {
	CandidatesRelayed atomic.Int64 // cumulative ICE candidates forwarded between the endpoints
	CandidatesDropped atomic.Int64 // cumulative candidates the receiving endpoint rejected
	Descriptions      atomic.Int64 // cumulative session descriptions applied (local + remote)
	StateChanges      atomic.Int64 // cumulative endpoint connection-state transitions observed
}

func (s *stats) AddRelayed()     { s.CandidatesRelayed.Add(1) }
func (s *stats) AddDropped()     { s.CandidatesDropped.Add(1) }
func (s *stats) AddDescription() { s.Descriptions.Add(1) }
func (s *stats) AddStateChange() { s.StateChanges.Add(1) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs session statistics
// every 10 seconds while anything changed. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevRelayed, prevDropped, prevDesc, prevState int64
		for {
			select {
			case <-ticker.C:
				relayed := Stats.CandidatesRelayed.Load()
				dropped := Stats.CandidatesDropped.Load()
				desc := Stats.Descriptions.Load()
				state := Stats.StateChanges.Load()

				if relayed != prevRelayed || dropped != prevDropped ||
					desc != prevDesc || state != prevState {
					pterm.DefaultLogger.Info(formatStats(relayed, dropped, desc, state))
				}

				prevRelayed = relayed
				prevDropped = dropped
				prevDesc = desc
				prevState = state

			case <-ctx.Done():
				return
			}
		}
	}()
}

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(relayed, dropped, desc, state int64) string {
	return fmt.Sprintf("Candidates: %d relayed %d dropped | Descriptions: %d | State changes: %d",
		relayed,
		dropped,
		desc,
		state,
	)
}
