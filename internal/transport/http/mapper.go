package http

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/vovakirdan/babyboom-server/internal/core"
	"github.com/vovakirdan/babyboom-server/internal/proto"
)

func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("missing data: %w", core.ErrBadRequest)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode data: %w: %v", core.ErrBadRequest, err)
	}
	return nil
}

func requireSession(id string) error {
	if id == "" {
		return fmt.Errorf("sessionId is required: %w", core.ErrBadRequest)
	}
	return nil
}

func inboundToCommand(inbound proto.Inbound) (*core.Command, error) {
	switch inbound.Type {
	case proto.InboundTypeFindPartner:
		var data proto.FindPartnerData
		// findPartner without a body is a search with an empty profile
		if len(inbound.Data) > 0 {
			if err := decode(inbound.Data, &data); err != nil {
				return nil, err
			}
		}
		return &core.Command{
			Kind:         core.CommandFindPartner,
			Profile:      profileFromProto(data.Profile),
			AutoContinue: data.AutoContinue,
		}, nil

	case proto.InboundTypeOffer, proto.InboundTypeAnswer:
		var data proto.SessionDescriptionData
		if err := decode(inbound.Data, &data); err != nil {
			return nil, err
		}
		if err := requireSession(data.SessionID); err != nil {
			return nil, err
		}
		if isEmptyJSON(data.SDP) {
			return nil, fmt.Errorf("sdp is required: %w", core.ErrBadRequest)
		}
		kind := core.CommandOffer
		if inbound.Type == proto.InboundTypeAnswer {
			kind = core.CommandAnswer
		}
		return &core.Command{Kind: kind, SessionID: data.SessionID, Payload: data.SDP}, nil

	case proto.InboundTypeICECandidate:
		var data proto.ICECandidateData
		if err := decode(inbound.Data, &data); err != nil {
			return nil, err
		}
		if err := requireSession(data.SessionID); err != nil {
			return nil, err
		}
		if isEmptyJSON(data.Candidate) {
			return nil, fmt.Errorf("candidate is required: %w", core.ErrBadRequest)
		}
		return &core.Command{Kind: core.CommandICECandidate, SessionID: data.SessionID, Payload: data.Candidate}, nil

	case proto.InboundTypeMessage:
		var data proto.MessageData
		if err := decode(inbound.Data, &data); err != nil {
			return nil, err
		}
		if err := requireSession(data.SessionID); err != nil {
			return nil, err
		}
		if strings.TrimSpace(data.Text) == "" {
			return nil, fmt.Errorf("text is required: %w", core.ErrBadRequest)
		}
		return &core.Command{
			Kind:      core.CommandSendMessage,
			SessionID: data.SessionID,
			Message:   core.Message{Text: data.Text},
		}, nil

	case proto.InboundTypeTyping:
		var data proto.SessionData
		if err := decode(inbound.Data, &data); err != nil {
			return nil, err
		}
		if err := requireSession(data.SessionID); err != nil {
			return nil, err
		}
		return &core.Command{Kind: core.CommandTyping, SessionID: data.SessionID}, nil

	case proto.InboundTypeRemoteCamera:
		var data proto.RemoteCameraData
		if err := decode(inbound.Data, &data); err != nil {
			return nil, err
		}
		return &core.Command{Kind: core.CommandRemoteCamera, SessionID: data.SessionID, Enabled: data.Enabled}, nil

	case proto.InboundTypeDisconnectFromChat:
		var data proto.SessionData
		if len(inbound.Data) > 0 {
			if err := decode(inbound.Data, &data); err != nil {
				return nil, err
			}
		}
		return &core.Command{Kind: core.CommandDisconnectFromChat, SessionID: data.SessionID}, nil

	case proto.InboundTypeReportUser:
		var data proto.ReportData
		if len(inbound.Data) > 0 {
			if err := decode(inbound.Data, &data); err != nil {
				return nil, err
			}
		}
		return &core.Command{Kind: core.CommandReportUser, SessionID: data.SessionID, Reason: data.Reason}, nil

	default:
		return nil, fmt.Errorf("type %q: %w", inbound.Type, core.ErrUnknownCommand)
	}
}

func isEmptyJSON(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null" || s == `""` || s == "{}"
}

func profileFromProto(p proto.Profile) core.Profile {
	return core.Profile{
		Nickname: p.Nickname,
		Age:      string(p.Age),
		Gender:   p.Gender,
		Country:  p.Country,
	}
}

func profileToProto(p core.Profile) proto.Profile {
	return proto.Profile{
		Nickname: p.Nickname,
		Age:      proto.FlexString(p.Age),
		Gender:   p.Gender,
		Country:  p.Country,
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventConnected:
		return proto.Outbound{Type: proto.OutboundTypeConnected, Data: proto.EventConnected{ID: event.From}}
	case core.EventWaiting:
		return proto.Outbound{Type: proto.OutboundTypeWaiting}
	case core.EventPartnerFound:
		return proto.Outbound{
			Type: proto.OutboundTypePartnerFound,
			Data: proto.EventPartnerFound{
				SessionID:      event.SessionID,
				PartnerProfile: profileToProto(event.Profile),
				Initiator:      lo.ToPtr(event.Initiator),
			},
		}
	case core.EventOffer, core.EventAnswer:
		typ := proto.OutboundTypeOffer
		if event.Kind == core.EventAnswer {
			typ = proto.OutboundTypeAnswer
		}
		return proto.Outbound{
			Type: typ,
			Data: proto.EventSessionDescription{SessionID: event.SessionID, From: event.From, SDP: event.Payload},
		}
	case core.EventICECandidate:
		return proto.Outbound{
			Type: proto.OutboundTypeICECandidate,
			Data: proto.EventICECandidate{SessionID: event.SessionID, From: event.From, Candidate: event.Payload},
		}
	case core.EventMessage:
		return proto.Outbound{
			Type: proto.OutboundTypeMessage,
			Data: proto.EventMessage{
				From: event.Message.From,
				Text: event.Message.Text,
				TS:   event.Message.CreatedAt.UnixMilli(),
			},
		}
	case core.EventTyping:
		return proto.Outbound{Type: proto.OutboundTypeTyping, Data: proto.SessionData{SessionID: event.SessionID}}
	case core.EventRemoteCamera:
		return proto.Outbound{Type: proto.OutboundTypeRemoteCamera, Data: proto.EventRemoteCamera{Enabled: event.Enabled}}
	case core.EventPartnerDisconnected:
		return proto.Outbound{Type: proto.OutboundTypePartnerDisconnected, Data: proto.SessionData{SessionID: event.SessionID}}
	case core.EventOnlineUsers:
		return proto.Outbound{Type: proto.OutboundTypeOnlineUsers, Data: proto.EventOnlineUsers{Count: event.Count}}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unsupported event"}}
	}
}
