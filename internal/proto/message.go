package proto

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

const (
	InboundTypeFindPartner        = "findPartner"
	InboundTypeOffer              = "offer"
	InboundTypeAnswer             = "answer"
	InboundTypeICECandidate       = "iceCandidate"
	InboundTypeMessage            = "message"
	InboundTypeTyping             = "typing"
	InboundTypeRemoteCamera       = "remoteCamera"
	InboundTypeDisconnectFromChat = "disconnectFromChat"
	InboundTypeReportUser         = "reportUser"

	OutboundTypeConnected           = "connected"
	OutboundTypeWaiting             = "waiting"
	OutboundTypePartnerFound        = "partnerFound"
	OutboundTypeOffer               = "offer"
	OutboundTypeAnswer              = "answer"
	OutboundTypeICECandidate        = "iceCandidate"
	OutboundTypeMessage             = "message"
	OutboundTypeTyping              = "typing"
	OutboundTypeRemoteCamera        = "remoteCamera"
	OutboundTypePartnerDisconnected = "partnerDisconnected"
	OutboundTypeOnlineUsers         = "onlineUsers"
	OutboundTypeError               = "error"
)

// Profile is the self-description a participant attaches to findPartner.
// The coordinator does not interpret it.
type Profile struct {
	Nickname string     `json:"nickname,omitempty"`
	Age      FlexString `json:"age,omitempty"`
	Gender   string     `json:"gender,omitempty"`
	Country  string     `json:"country,omitempty"`
}

// FindPartnerData asks to be queued for a new partner.
type FindPartnerData struct {
	Profile      Profile `json:"profile"`
	AutoContinue bool    `json:"autoContinue,omitempty"`
}

// SessionDescriptionData carries an offer or an answer.
type SessionDescriptionData struct {
	SessionID string          `json:"sessionId"`
	SDP       json.RawMessage `json:"sdp"`
}

// ICECandidateData carries one network path candidate.
type ICECandidateData struct {
	SessionID string          `json:"sessionId"`
	Candidate json.RawMessage `json:"candidate"`
}

// MessageData is a chat line typed by the client.
type MessageData struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
}

// SessionData names the session a typing or disconnect command applies to.
type SessionData struct {
	SessionID string `json:"sessionId"`
}

// RemoteCameraData toggles the camera indicator shown to the partner.
type RemoteCameraData struct {
	SessionID string `json:"sessionId,omitempty"`
	Enabled   bool   `json:"enabled"`
}

// ReportData ends the session and files a report against the partner.
type ReportData struct {
	SessionID string `json:"sessionId"`
	Reason    string `json:"reason"`
}

// EventConnected tells a fresh connection its participant id.
type EventConnected struct {
	ID string `json:"id"`
}

// EventPartnerFound announces a new session.
type EventPartnerFound struct {
	SessionID      string  `json:"sessionId"`
	PartnerProfile Profile `json:"partnerProfile"`
	Initiator      *bool   `json:"initiator,omitempty"`
}

// EventSessionDescription is a relayed offer or answer.
type EventSessionDescription struct {
	SessionID string          `json:"sessionId"`
	From      string          `json:"from"`
	SDP       json.RawMessage `json:"sdp"`
}

// EventICECandidate is a relayed candidate.
type EventICECandidate struct {
	SessionID string          `json:"sessionId"`
	From      string          `json:"from"`
	Candidate json.RawMessage `json:"candidate"`
}

// EventMessage is a relayed chat line.
type EventMessage struct {
	From string `json:"from"`
	Text string `json:"text"`
	TS   int64  `json:"ts"`
}

// EventRemoteCamera is a relayed camera toggle.
type EventRemoteCamera struct {
	Enabled bool `json:"enabled"`
}

// EventOnlineUsers carries the number of connected participants.
type EventOnlineUsers struct {
	Count int `json:"count"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// FlexString accepts both JSON strings and numbers. Browsers send the age
// field either way depending on the form control.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if _, err := strconv.ParseFloat(n.String(), 64); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}
