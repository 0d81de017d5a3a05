package core

import "fmt"

// partnerIn returns p's partner if p is a current member of sessionID.
func (s *state) partnerIn(p *Participant, sessionID string) (*Participant, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id is required", ErrBadRequest)
	}
	if p.session == nil || p.session.ID != sessionID {
		return nil, ErrNotInSession
	}
	partner := p.partner
	if partner == nil || !p.session.Has(partner) || !partner.connected {
		return nil, ErrPartnerGone
	}
	return partner, nil
}

// relay forwards ev unmodified to the other member of sessionID only,
// stamped with the sender id.
func (s *state) relay(p *Participant, sessionID string, ev *Event) error {
	partner, err := s.partnerIn(p, sessionID)
	if err != nil {
		return err
	}
	ev.SessionID = sessionID
	ev.From = p.ID
	s.emit(partner, ev)
	return nil
}
