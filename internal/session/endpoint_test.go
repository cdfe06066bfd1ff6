package session

import (
	"testing"

	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
)

func TestEndpointRemoteDescriptionNeverOverwritten(t *testing.T) {
	link := &fakeLink{}
	e := NewEndpoint(EndpointRemote, link)

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "O1"}
	require.NoError(t, e.SetRemoteDescription(offer))

	other := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "O2"}
	err := e.SetRemoteDescription(other)
	require.Error(t, err)

	// The recorded description is untouched and the transport was only
	// asked once.
	require.Equal(t, "O1", e.RemoteDescription().SDP)
	require.Equal(t, []string{"setRemoteDescription"}, link.callSequence())
}

func TestEndpointRecordsCandidatesInDiscoveryOrder(t *testing.T) {
	link := &fakeLink{}
	e := NewEndpoint(EndpointLocal, link)

	for _, id := range []string{"c1", "c2", "c3"} {
		c := candidate(id)
		link.emitCandidate(&c)
	}

	emitted := e.EmittedCandidates()
	require.Len(t, emitted, 3)
	for i, id := range []string{"c1", "c2", "c3"} {
		require.Equal(t, id, emitted[i].Candidate)
	}
}

func TestEndpointFirstCandidateStartsGathering(t *testing.T) {
	link := &fakeLink{}
	e := NewEndpoint(EndpointLocal, link)

	var transitions []EndpointState
	e.OnStateChange(func(_ EndpointID, state EndpointState) {
		transitions = append(transitions, state)
	})

	require.Equal(t, EndpointNew, e.State())

	c := candidate("c1")
	link.emitCandidate(&c)
	require.Equal(t, EndpointGathering, e.State())

	// Second candidate does not re-announce gathering.
	c2 := candidate("c2")
	link.emitCandidate(&c2)
	require.Equal(t, []EndpointState{EndpointGathering}, transitions)
}

func TestEndpointEndOfCandidatesMarker(t *testing.T) {
	link := &fakeLink{}
	e := NewEndpoint(EndpointLocal, link)

	var relayed []string
	ended := false
	e.OnCandidate(func(c webrtc.ICECandidateInit) { relayed = append(relayed, c.Candidate) })
	e.OnEndOfCandidates(func() { ended = true })

	c := candidate("c1")
	link.emitCandidate(&c)
	link.emitCandidate(nil)

	require.Equal(t, []string{"c1"}, relayed)
	require.True(t, ended)
	// The marker is not a candidate.
	require.Len(t, e.EmittedCandidates(), 1)
}

func TestEndpointConnectionStateMapping(t *testing.T) {
	testCases := []struct {
		name string
		in   webrtc.PeerConnectionState
		want EndpointState
	}{
		{name: "connected", in: webrtc.PeerConnectionStateConnected, want: EndpointConnected},
		{name: "failed", in: webrtc.PeerConnectionStateFailed, want: EndpointFailed},
		{name: "disconnected", in: webrtc.PeerConnectionStateDisconnected, want: EndpointDisconnected},
		{name: "closed", in: webrtc.PeerConnectionStateClosed, want: EndpointClosed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			link := &fakeLink{}
			e := NewEndpoint(EndpointLocal, link)

			var got EndpointState
			e.OnStateChange(func(_ EndpointID, state EndpointState) { got = state })

			link.setConnectionState(tc.in)
			require.Equal(t, tc.want, got)
			require.Equal(t, tc.want, e.State())
		})
	}
}

func TestEndpointCloseIsTerminal(t *testing.T) {
	link := &fakeLink{}
	e := NewEndpoint(EndpointLocal, link)

	var transitions []EndpointState
	e.OnStateChange(func(_ EndpointID, state EndpointState) {
		transitions = append(transitions, state)
	})

	require.NoError(t, e.Close())
	require.Equal(t, EndpointClosed, e.State())

	// Late transport callbacks after close are dropped, not surfaced.
	link.setConnectionState(webrtc.PeerConnectionStateConnected)
	c := candidate("late")
	link.emitCandidate(&c)

	require.Equal(t, EndpointClosed, e.State())
	require.Empty(t, transitions)
	require.Empty(t, e.EmittedCandidates())

	// Closing twice only closes the transport once.
	require.NoError(t, e.Close())
	require.Equal(t, []string{"close"}, link.callSequence())
}

func TestEndpointIgnoresCandidateIngestionAfterClose(t *testing.T) {
	link := &fakeLink{}
	e := NewEndpoint(EndpointRemote, link)
	require.NoError(t, e.Close())

	// An in-flight relay delivery resolving after close must not fail.
	require.NoError(t, e.AddICECandidate(candidate("c1")))
	require.Empty(t, link.addedCandidates())
}

func TestEndpointIDOther(t *testing.T) {
	require.Equal(t, EndpointRemote, EndpointLocal.Other())
	require.Equal(t, EndpointLocal, EndpointRemote.Other())
}
