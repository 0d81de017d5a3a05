package core

import "encoding/json"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventConnected tells a new connection its participant id.
	EventConnected EventKind = iota
	// EventWaiting confirms the client occupies the waiting slot.
	EventWaiting
	// EventPartnerFound announces a new session to both members.
	EventPartnerFound
	// EventOffer delivers the partner's offer.
	EventOffer
	// EventAnswer delivers the partner's answer.
	EventAnswer
	// EventICECandidate delivers one of the partner's candidates.
	EventICECandidate
	// EventMessage delivers a chat line.
	EventMessage
	// EventTyping tells the client its partner is typing.
	EventTyping
	// EventRemoteCamera delivers the partner's camera state.
	EventRemoteCamera
	// EventPartnerDisconnected tells the survivor the session is over.
	EventPartnerDisconnected
	// EventOnlineUsers carries the live participant count.
	EventOnlineUsers
	// EventError notifies clients about a domain error.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventWaiting:
		return "waiting"
	case EventPartnerFound:
		return "partner_found"
	case EventOffer:
		return "offer"
	case EventAnswer:
		return "answer"
	case EventICECandidate:
		return "ice_candidate"
	case EventMessage:
		return "message"
	case EventTyping:
		return "typing"
	case EventRemoteCamera:
		return "remote_camera"
	case EventPartnerDisconnected:
		return "partner_disconnected"
	case EventOnlineUsers:
		return "online_users"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Lossy kinds may be dropped when a client's buffer is half full. Any other
// kind that does not fit marks the client as a dead consumer.
func (k EventKind) Lossy() bool {
	return k == EventOnlineUsers || k == EventTyping
}

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind      EventKind
	SessionID string
	// From is the sender stamp on relayed events, or the client's own id
	// on EventConnected.
	From      string
	Profile   Profile // partner profile on EventPartnerFound
	Initiator bool
	Payload   json.RawMessage
	Message   Message
	Enabled   bool
	Count     int
	Error     *CoreError
}
