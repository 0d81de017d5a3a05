package core

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

type envelope struct {
	client *Client
	cmd    *Command
}

// Hub owns the matchmaking queue, the session registry and the relay.
// Every mutation happens on the goroutine running Run.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	inbox      chan envelope
	statsReq   chan chan Stats
	done       chan struct{}

	st  *state
	log zerolog.Logger
}

// NewHub creates a hub. reports and logger may be nil.
func NewHub(reports ReportSink, logger *zerolog.Logger) *Hub {
	l := zerolog.Nop()
	if logger != nil {
		l = logger.With().Str("component", "hub").Logger()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbox:      make(chan envelope, 256),
		statsReq:   make(chan chan Stats),
		done:       make(chan struct{}),
		st:         newState(reports, l),
		log:        l,
	}
}

// RegisterClient adds a connection. It is a no-op once the hub stopped.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// UnregisterClient removes a connection and tears down its session.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Stats returns current counters.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.statsReq <- reply:
	case <-h.done:
		return Stats{}, errors.New("hub stopped")
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Run processes registrations and commands until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.st.connect(c)
			h.log.Info().Str("participant_id", c.ID).Msg("participant connected")
			go h.pump(ctx, c)
			h.evictSlow()
		case c := <-h.unregister:
			p, ok := h.st.participants[c.ID]
			if !ok || p.client != c {
				continue
			}
			h.st.disconnect(p)
			h.release(c)
			h.log.Info().Str("participant_id", c.ID).Msg("participant disconnected")
			h.evictSlow()
		case in := <-h.inbox:
			h.handle(in.client, in.cmd)
			h.evictSlow()
		case reply := <-h.statsReq:
			reply <- h.st.stats()
		}
	}
}

// pump forwards one client's commands into the hub inbox in order.
func (h *Hub) pump(ctx context.Context, c *Client) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case cmd := <-c.Commands:
			if cmd == nil {
				continue
			}
			select {
			case h.inbox <- envelope{client: c, cmd: cmd}:
			case <-c.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// Done is closed once Run has returned. No ReportSink call happens after it.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// evictSlow drops participants whose event buffer overflowed. Closing their
// event channel ends the connection's write loop.
func (h *Hub) evictSlow() {
	for _, c := range h.st.reap() {
		h.release(c)
		h.log.Warn().Str("participant_id", c.ID).Msg("slow consumer evicted")
	}
}

func (h *Hub) release(c *Client) {
	close(c.done)
	close(c.Events)
}

func (h *Hub) shutdown() {
	for _, p := range h.st.participants {
		p.connected = false
		h.release(p.client)
	}
	h.st.participants = make(map[string]*Participant)
	h.st.sessions = make(map[string]*Session)
	h.st.waiting = nil
}

func (h *Hub) handle(c *Client, cmd *Command) {
	p, ok := h.st.participants[c.ID]
	if !ok || p.client != c {
		return
	}

	if err := h.apply(p, cmd); err != nil {
		h.log.Debug().
			Err(err).
			Str("participant_id", p.ID).
			Stringer("command", cmd.Kind).
			Str("session_id", cmd.SessionID).
			Msg("dropping command")
	}
}

func (h *Hub) apply(p *Participant, cmd *Command) error {
	s := h.st
	switch cmd.Kind {
	case CommandFindPartner:
		s.requestPairing(p, cmd.Profile, cmd.AutoContinue)
		return nil

	case CommandOffer, CommandAnswer, CommandICECandidate:
		if len(cmd.Payload) == 0 {
			return ErrBadRequest
		}
		kind := EventOffer
		switch cmd.Kind {
		case CommandAnswer:
			kind = EventAnswer
		case CommandICECandidate:
			kind = EventICECandidate
		}
		return s.relay(p, cmd.SessionID, &Event{Kind: kind, Payload: cmd.Payload})

	case CommandSendMessage:
		if strings.TrimSpace(cmd.Message.Text) == "" {
			return ErrBadRequest
		}
		msg := cmd.Message
		msg.From = p.ID
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = s.now()
		}
		return s.relay(p, cmd.SessionID, &Event{Kind: EventMessage, Message: msg})

	case CommandTyping:
		return s.relay(p, cmd.SessionID, &Event{Kind: EventTyping})

	case CommandRemoteCamera:
		sessionID := cmd.SessionID
		if sessionID == "" && p.session != nil {
			sessionID = p.session.ID
		}
		if sessionID == "" {
			return ErrNotInSession
		}
		return s.relay(p, sessionID, &Event{Kind: EventRemoteCamera, Enabled: cmd.Enabled})

	case CommandDisconnectFromChat, CommandReportUser:
		if p.session == nil {
			if cmd.Kind == CommandDisconnectFromChat && s.cancelSearch(p) {
				h.log.Debug().Str("participant_id", p.ID).Msg("search cancelled")
				return nil
			}
			return ErrNotInSession
		}
		if cmd.SessionID != "" && cmd.SessionID != p.session.ID {
			return ErrNotInSession
		}
		reason := ReasonSkip
		if cmd.Kind == CommandReportUser {
			reason = ReasonReport
			h.log.Warn().
				Str("participant_id", p.ID).
				Str("session_id", p.session.ID).
				Str("reason", cmd.Reason).
				Msg("user reported")
		}
		if s.endSession(p, reason, cmd.Reason) && p.AutoContinue {
			s.enqueue(p)
		}
		return nil

	default:
		return ErrUnknownCommand
	}
}
