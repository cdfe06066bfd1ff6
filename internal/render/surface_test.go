package render

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/givliano/open-drop/internal/media"
	"github.com/givliano/open-drop/internal/util"
)

func TestAttachLocalLoadsSlotOnce(t *testing.T) {
	s := NewSurface(util.NewTracer())

	var events []Event
	s.OnEvent(func(ev Event) { events = append(events, ev) })

	s.AttachLocal(640, 480)

	require.Equal(t, []Event{{Slot: SlotLocal, Kind: EventLoaded, Width: 640, Height: 480}}, events)

	w, h, ok := s.Dimensions(SlotLocal)
	require.True(t, ok)
	require.Equal(t, 640, w)
	require.Equal(t, 480, h)

	// Re-assigning the same stream size emits nothing new.
	s.AttachLocal(640, 480)
	require.Len(t, events, 1)
}

func TestKeyframeLoadsThenResizesRemoteSlot(t *testing.T) {
	s := NewSurface(util.NewTracer())

	var events []Event
	s.OnEvent(func(ev Event) { events = append(events, ev) })

	keyframes := 0
	mark := func() { keyframes++ }

	first, err := media.EncodeKeyframeHeader(640, 480, 0)
	require.NoError(t, err)
	s.handleFrame(first, mark)

	require.Equal(t, []Event{{Slot: SlotRemote, Kind: EventLoaded, Width: 640, Height: 480}}, events)

	// Same dimensions again: keyframe observed, no event.
	s.handleFrame(first, mark)
	require.Len(t, events, 1)

	resized, err := media.EncodeKeyframeHeader(320, 240, 0)
	require.NoError(t, err)
	s.handleFrame(resized, mark)

	require.Equal(t, Event{Slot: SlotRemote, Kind: EventResized, Width: 320, Height: 240}, events[1])
	require.Equal(t, 3, keyframes)
}

func TestInterframesAndGarbageAreIgnored(t *testing.T) {
	s := NewSurface(util.NewTracer())

	var events []Event
	s.OnEvent(func(ev Event) { events = append(events, ev) })

	inter, err := media.EncodeFrameTag(false, 0, 10)
	require.NoError(t, err)

	s.handleFrame(inter, func() { t.Fatal("interframe marked as keyframe") })
	s.handleFrame([]byte{0xff}, func() { t.Fatal("garbage marked as keyframe") })

	require.Empty(t, events)
	_, _, ok := s.Dimensions(SlotRemote)
	require.False(t, ok)
}
