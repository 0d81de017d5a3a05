package core

import (
	"time"

	"github.com/rs/zerolog"
)

// state is the coordinator's shared data. Only the hub goroutine touches it.
type state struct {
	participants map[string]*Participant
	sessions     map[string]*Session
	waiting      *Participant
	// slow holds participants whose event buffer overflowed; reap evicts them.
	slow []*Participant

	presence Presence
	reports  ReportSink
	log      zerolog.Logger
	now      func() time.Time
}

func newState(reports ReportSink, logger zerolog.Logger) *state {
	return &state{
		participants: make(map[string]*Participant),
		sessions:     make(map[string]*Session),
		presence:     NewCounter(),
		reports:      reports,
		log:          logger,
		now:          time.Now,
	}
}

func (s *state) connect(c *Client) *Participant {
	p := &Participant{
		ID:        c.ID,
		Profile:   Profile{}.normalized(),
		client:    c,
		connected: true,
	}
	s.participants[p.ID] = p
	s.emit(p, &Event{Kind: EventConnected, From: p.ID})
	s.broadcastOnline(s.presence.Join())
	return p
}

func (s *state) disconnect(p *Participant) {
	p.connected = false
	s.endSession(p, ReasonDisconnect, "")
	s.cancelSearch(p)
	delete(s.participants, p.ID)
	s.broadcastOnline(s.presence.Leave())
}

// emit never blocks the hub. Lossy events are skipped once the buffer is
// half full so they cannot crowd out session events; a session event that
// does not fit queues the participant for eviction.
func (s *state) emit(p *Participant, ev *Event) {
	if p.client == nil || !p.connected || p.slow {
		return
	}
	ch := p.client.Events
	if ev.Kind.Lossy() && len(ch) >= cap(ch)/2 {
		s.log.Debug().
			Str("participant_id", p.ID).
			Stringer("event", ev.Kind).
			Msg("event buffer busy, skipping event")
		return
	}
	select {
	case ch <- ev:
	default:
		s.log.Warn().
			Str("participant_id", p.ID).
			Stringer("event", ev.Kind).
			Msg("event buffer full, evicting participant")
		p.slow = true
		s.slow = append(s.slow, p)
	}
}

// reap disconnects every participant that overflowed its event buffer and
// returns their clients. Teardown can overflow further partners, so it
// loops until the queue is empty.
func (s *state) reap() []*Client {
	var evicted []*Client
	for len(s.slow) > 0 {
		p := s.slow[0]
		s.slow = s.slow[1:]
		if cur, ok := s.participants[p.ID]; !ok || cur != p {
			continue
		}
		s.disconnect(p)
		evicted = append(evicted, p.client)
	}
	return evicted
}

// Stats is a point-in-time view of the coordinator.
type Stats struct {
	Online   int
	Waiting  int
	Sessions int
}

func (s *state) stats() Stats {
	st := Stats{
		Online:   s.presence.Count(),
		Sessions: len(s.sessions),
	}
	if s.waiting != nil {
		st.Waiting = 1
	}
	return st
}
