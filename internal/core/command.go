package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandFindPartner queues the client for a new partner.
	CommandFindPartner CommandKind = iota
	// CommandOffer relays a session description offer.
	CommandOffer
	// CommandAnswer relays a session description answer.
	CommandAnswer
	// CommandICECandidate relays a network path candidate.
	CommandICECandidate
	// CommandSendMessage relays a chat line.
	CommandSendMessage
	// CommandTyping relays the typing indicator.
	CommandTyping
	// CommandRemoteCamera relays the camera on/off state.
	CommandRemoteCamera
	// CommandDisconnectFromChat ends the current session (skip).
	CommandDisconnectFromChat
	// CommandReportUser ends the current session and files a report.
	CommandReportUser
)

func (k CommandKind) String() string {
	switch k {
	case CommandFindPartner:
		return "find_partner"
	case CommandOffer:
		return "offer"
	case CommandAnswer:
		return "answer"
	case CommandICECandidate:
		return "ice_candidate"
	case CommandSendMessage:
		return "message"
	case CommandTyping:
		return "typing"
	case CommandRemoteCamera:
		return "remote_camera"
	case CommandDisconnectFromChat:
		return "disconnect_from_chat"
	case CommandReportUser:
		return "report_user"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind         CommandKind
	SessionID    string
	Profile      Profile
	AutoContinue bool
	// Payload is the opaque negotiation blob for offer, answer and candidate.
	Payload json.RawMessage
	Message Message
	Enabled bool
	Reason  string
}
