package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/vovakirdan/babyboom-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
		os.Exit(1)
	}
}

type peer struct {
	name string
	conn *websocket.Conn
	id   string
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3000/ws", "WebSocket address")
	text := flag.String("text", "hello from smoke test", "message text to send")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	a, err := dial(ctx, *addr, "alice")
	if err != nil {
		return err
	}
	defer a.conn.Close(websocket.StatusNormalClosure, "bye")

	b, err := dial(ctx, *addr, "bob")
	if err != nil {
		return err
	}
	defer b.conn.Close(websocket.StatusNormalClosure, "bye")

	if err := a.send(ctx, proto.InboundTypeFindPartner, proto.FindPartnerData{Profile: proto.Profile{Nickname: a.name}}); err != nil {
		return err
	}
	if _, err := a.await(ctx, proto.OutboundTypeWaiting); err != nil {
		return err
	}
	fmt.Printf("%s waiting\n", a.name)

	if err := b.send(ctx, proto.InboundTypeFindPartner, proto.FindPartnerData{Profile: proto.Profile{Nickname: b.name}}); err != nil {
		return err
	}

	var found proto.EventPartnerFound
	raw, err := b.await(ctx, proto.OutboundTypePartnerFound)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, &found); err != nil {
		return fmt.Errorf("unmarshal partnerFound: %w", err)
	}
	if _, err := a.await(ctx, proto.OutboundTypePartnerFound); err != nil {
		return err
	}
	fmt.Printf("paired: session=%s partner=%s\n", found.SessionID, found.PartnerProfile.Nickname)

	if err := b.send(ctx, proto.InboundTypeMessage, proto.MessageData{SessionID: found.SessionID, Text: *text}); err != nil {
		return err
	}
	raw, err = a.await(ctx, proto.OutboundTypeMessage)
	if err != nil {
		return err
	}
	var msg proto.EventMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("unmarshal message: %w", err)
	}
	fmt.Printf("EventMessage: from=%s text=%q ts=%d\n", msg.From, msg.Text, msg.TS)
	return nil
}

func dial(ctx context.Context, addr, name string) (*peer, error) {
	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", name, err)
	}
	p := &peer{name: name, conn: conn}
	raw, err := p.await(ctx, proto.OutboundTypeConnected)
	if err != nil {
		conn.Close(websocket.StatusInternalError, "handshake")
		return nil, err
	}
	var evt proto.EventConnected
	if err := json.Unmarshal(raw, &evt); err != nil {
		conn.Close(websocket.StatusInternalError, "handshake")
		return nil, fmt.Errorf("unmarshal connected: %w", err)
	}
	p.id = evt.ID
	fmt.Printf("%s connected as %s\n", name, p.id)
	return p, nil
}

func (p *peer) send(ctx context.Context, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, p.conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("%s send %s: %w", p.name, typ, err)
	}
	return nil
}

// await reads until an event of the given type arrives and returns its data.
func (p *peer) await(ctx context.Context, typ string) (json.RawMessage, error) {
	for {
		var outbound struct {
			Type  string          `json:"type"`
			Data  json.RawMessage `json:"data"`
			Error *proto.Error    `json:"error"`
		}
		if err := wsjson.Read(ctx, p.conn, &outbound); err != nil {
			return nil, fmt.Errorf("%s read: %w", p.name, err)
		}
		if outbound.Error != nil {
			fmt.Printf("%s error: %s %s\n", p.name, outbound.Error.Code, outbound.Error.Msg)
		}
		if outbound.Type == typ {
			return outbound.Data, nil
		}
	}
}
