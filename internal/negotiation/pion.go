package negotiation

import (
	"fmt"

	"github.com/pion/webrtc/v4"
)

// MediaSource supplies local tracks. Capturing devices is the caller's concern.
type MediaSource interface {
	Tracks() []webrtc.TrackLocal
}

// PionConfig configures a PionTransport.
type PionConfig struct {
	ICEServers []string
	Media      MediaSource
	// DataChannel opens a data channel with this label before the offer is
	// created. Leave empty on the answering side.
	DataChannel string
}

// PionTransport is a Transport backed by a pion PeerConnection.
type PionTransport struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel
}

var _ Transport = (*PionTransport)(nil)

// NewPionTransport creates the peer connection and attaches local media.
func NewPionTransport(cfg PionConfig) (*PionTransport, error) {
	var servers []webrtc.ICEServer
	if len(cfg.ICEServers) > 0 {
		servers = []webrtc.ICEServer{{URLs: cfg.ICEServers}}
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}
	t := &PionTransport{pc: pc}

	if cfg.Media != nil {
		for _, track := range cfg.Media.Tracks() {
			if _, err := pc.AddTrack(track); err != nil {
				pc.Close()
				return nil, fmt.Errorf("add track %s: %w", track.ID(), err)
			}
		}
	}

	if cfg.DataChannel != "" {
		ordered := true
		dc, err := pc.CreateDataChannel(cfg.DataChannel, &webrtc.DataChannelInit{Ordered: &ordered})
		if err != nil {
			pc.Close()
			return nil, fmt.Errorf("create data channel: %w", err)
		}
		t.dc = dc
	}
	return t, nil
}

func (t *PionTransport) CreateOffer() (webrtc.SessionDescription, error) {
	offer, err := t.pc.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create offer: %w", err)
	}
	if err := t.pc.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local description: %w", err)
	}
	return *t.pc.LocalDescription(), nil
}

func (t *PionTransport) CreateAnswer() (webrtc.SessionDescription, error) {
	answer, err := t.pc.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("create answer: %w", err)
	}
	if err := t.pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, fmt.Errorf("set local description: %w", err)
	}
	return *t.pc.LocalDescription(), nil
}

func (t *PionTransport) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return t.pc.SetRemoteDescription(desc)
}

func (t *PionTransport) AddICECandidate(c webrtc.ICECandidateInit) error {
	return t.pc.AddICECandidate(c)
}

func (t *PionTransport) SignalingState() webrtc.SignalingState {
	return t.pc.SignalingState()
}

func (t *PionTransport) HasRemoteDescription() bool {
	return t.pc.RemoteDescription() != nil
}

func (t *PionTransport) OnICECandidate(handler func(webrtc.ICECandidateInit)) {
	t.pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		// nil marks the end of gathering
		if c == nil {
			return
		}
		handler(c.ToJSON())
	})
}

func (t *PionTransport) OnConnectionStateChange(handler func(webrtc.PeerConnectionState)) {
	t.pc.OnConnectionStateChange(handler)
}

// OnDataChannel registers a handler for the data channel, whether it was
// opened locally or by the partner.
func (t *PionTransport) OnDataChannel(handler func(*webrtc.DataChannel)) {
	if t.dc != nil {
		handler(t.dc)
	}
	t.pc.OnDataChannel(handler)
}

func (t *PionTransport) Close() error {
	return t.pc.Close()
}
