// Package negotiation drives one peer connection through offer/answer
// exchange for a single session.
package negotiation

//go:generate mockgen -source=negotiation.go -destination=mock/mock_negotiation.go -package=mock_negotiation

import (
	"errors"
	"strings"

	"github.com/pion/webrtc/v4"
)

var (
	// ErrNegotiationTimeout is returned when a description arrived in a state
	// that did not become acceptable within the wait budget. The message is dropped.
	ErrNegotiationTimeout = errors.New("negotiation: timed out waiting for a stable state")
	// ErrClosed is returned for any input after the machine reached Closed or Failed.
	ErrClosed = errors.New("negotiation: machine closed")
	// ErrMalformed is returned for descriptions or candidates that do not parse.
	ErrMalformed = errors.New("negotiation: malformed payload")
	// ErrWrongRole is returned when a responder is asked to start.
	ErrWrongRole = errors.New("negotiation: not the initiator")
)

// State is the negotiation state of one session.
type State int32

const (
	StateIdle State = iota
	StateOfferSent
	StateOfferReceived
	StateStable
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOfferSent:
		return "offer-sent"
	case StateOfferReceived:
		return "offer-received"
	case StateStable:
		return "stable"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// Role decides which side creates the offer.
type Role int

const (
	RoleResponder Role = iota
	RoleInitiator
)

func (r Role) String() string {
	if r == RoleInitiator {
		return "initiator"
	}
	return "responder"
}

// RoleFor maps the coordinator's initiator flag to a Role.
func RoleFor(initiator bool) Role {
	if initiator {
		return RoleInitiator
	}
	return RoleResponder
}

// RoleFromSessionID guesses the role from the session id layout when the
// coordinator did not send an initiator flag. Session ids end with the
// requester's id, so a participant whose id is not the suffix was the one
// waiting and offers first. Ids that are suffixes of each other break this;
// only use it for coordinators that predate the flag.
func RoleFromSessionID(sessionID, selfID string) Role {
	if selfID != "" && strings.HasSuffix(sessionID, "-"+selfID) {
		return RoleResponder
	}
	return RoleInitiator
}

// Transport is the local end of the peer connection.
type Transport interface {
	// CreateOffer creates an offer and applies it as the local description.
	CreateOffer() (webrtc.SessionDescription, error)
	// CreateAnswer creates an answer and applies it as the local description.
	CreateAnswer() (webrtc.SessionDescription, error)
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(candidate webrtc.ICECandidateInit) error
	SignalingState() webrtc.SignalingState
	HasRemoteDescription() bool
	OnICECandidate(handler func(candidate webrtc.ICECandidateInit))
	OnConnectionStateChange(handler func(state webrtc.PeerConnectionState))
	Close() error
}

// Signaler sends negotiation messages to the partner through the coordinator.
type Signaler interface {
	SendOffer(sessionID string, desc webrtc.SessionDescription) error
	SendAnswer(sessionID string, desc webrtc.SessionDescription) error
	SendCandidate(sessionID string, candidate webrtc.ICECandidateInit) error
}
