package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatTraceLine(t *testing.T) {
	testCases := []struct {
		elapsed time.Duration
		msg     string
		want    string
	}{
		{elapsed: 0, msg: "negotiation start", want: "0.000: negotiation start"},
		{elapsed: 1234 * time.Millisecond, msg: "applied offer", want: "1.234: applied offer"},
		{elapsed: 62*time.Second + 500*time.Millisecond, msg: "hangup", want: "62.500: hangup"},
	}

	for _, tc := range testCases {
		require.Equal(t, tc.want, FormatTraceLine(tc.elapsed, tc.msg))
	}
}

func TestTracerFansOutToAllSinks(t *testing.T) {
	tracer := NewTracer()

	var first, second []string
	tracer.Subscribe(func(line string) { first = append(first, line) })
	tracer.Subscribe(func(line string) { second = append(second, line) })

	tracer.Logf("relayed candidate from %s", "local")
	tracer.Logf("session connected")

	require.Len(t, first, 2)
	require.Equal(t, first, second)
	require.Contains(t, first[0], "relayed candidate from local")
	require.Contains(t, first[1], "session connected")
}

func TestTracerWithoutSinksIsSilent(t *testing.T) {
	tracer := NewTracer()
	tracer.Logf("nobody listening")
}

func TestFormatStats(t *testing.T) {
	got := formatStats(12, 1, 4, 8)
	require.Equal(t, "Candidates: 12 relayed 1 dropped | Descriptions: 4 | State changes: 8", got)
}
