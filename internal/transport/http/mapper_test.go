package http

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/vovakirdan/babyboom-server/internal/core"
	"github.com/vovakirdan/babyboom-server/internal/proto"
)

func TestInboundToCommandRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name string
		in   proto.Inbound
		want error
	}{
		{"offer without session", proto.Inbound{Type: "offer", Data: json.RawMessage(`{"sdp":{"type":"offer"}}`)}, core.ErrBadRequest},
		{"offer without sdp", proto.Inbound{Type: "offer", Data: json.RawMessage(`{"sessionId":"room-a-b"}`)}, core.ErrBadRequest},
		{"answer with null sdp", proto.Inbound{Type: "answer", Data: json.RawMessage(`{"sessionId":"room-a-b","sdp":null}`)}, core.ErrBadRequest},
		{"candidate without candidate", proto.Inbound{Type: "iceCandidate", Data: json.RawMessage(`{"sessionId":"room-a-b"}`)}, core.ErrBadRequest},
		{"blank message", proto.Inbound{Type: "message", Data: json.RawMessage(`{"sessionId":"room-a-b","text":"   "}`)}, core.ErrBadRequest},
		{"typing without data", proto.Inbound{Type: "typing"}, core.ErrBadRequest},
		{"broken json", proto.Inbound{Type: "message", Data: json.RawMessage(`[1,2]`)}, core.ErrBadRequest},
		{"unknown type", proto.Inbound{Type: "join"}, core.ErrUnknownCommand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := inboundToCommand(tt.in)
			if cmd != nil {
				t.Fatalf("expected no command, got %+v", cmd)
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestInboundToCommandFindPartner(t *testing.T) {
	in := proto.Inbound{
		Type: "findPartner",
		Data: json.RawMessage(`{"profile":{"nickname":"n","age":31,"country":"PT"},"autoContinue":true}`),
	}
	cmd, err := inboundToCommand(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cmd.Kind != core.CommandFindPartner || !cmd.AutoContinue {
		t.Fatalf("unexpected command: %+v", cmd)
	}
	if cmd.Profile.Age != "31" || cmd.Profile.Country != "PT" {
		t.Fatalf("unexpected profile: %+v", cmd.Profile)
	}
}

func TestInboundToCommandOptionalSession(t *testing.T) {
	for _, typ := range []string{"disconnectFromChat", "reportUser", "remoteCamera"} {
		data := json.RawMessage(`{}`)
		if typ == "remoteCamera" {
			data = json.RawMessage(`{"enabled":true}`)
		}
		cmd, err := inboundToCommand(proto.Inbound{Type: typ, Data: data})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", typ, err)
		}
		if cmd.SessionID != "" {
			t.Fatalf("%s: unexpected session id %q", typ, cmd.SessionID)
		}
	}
}

func TestOutboundFromEvent(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	out := outboundFromEvent(&core.Event{
		Kind:    core.EventMessage,
		Message: core.Message{From: "a", Text: "hey", CreatedAt: ts},
	})
	msg, ok := out.Data.(proto.EventMessage)
	if out.Type != "message" || !ok {
		t.Fatalf("unexpected outbound: %+v", out)
	}
	if msg.From != "a" || msg.TS != ts.UnixMilli() {
		t.Fatalf("unexpected message data: %+v", msg)
	}

	out = outboundFromEvent(&core.Event{Kind: core.EventPartnerFound, SessionID: "room-a-b", Initiator: false})
	found, ok := out.Data.(proto.EventPartnerFound)
	if !ok || found.Initiator == nil || *found.Initiator {
		t.Fatalf("initiator flag must be present and false: %+v", out.Data)
	}
}
