package core

// requestPairing stores the profile, leaves any current session and queues p.
func (s *state) requestPairing(p *Participant, profile Profile, autoContinue bool) {
	p.Profile = profile.normalized()
	p.AutoContinue = autoContinue

	if p.session != nil {
		s.endSession(p, ReasonSkip, "")
	}
	s.enqueue(p)
}

// enqueue either parks p in the waiting slot or pairs it with the occupant.
func (s *state) enqueue(p *Participant) {
	w := s.waiting
	switch {
	case w == nil:
	case w == p:
		// Duplicate request from the occupant itself.
		s.emit(p, &Event{Kind: EventWaiting})
		return
	case !w.connected || w.session != nil:
		s.log.Debug().Str("participant_id", w.ID).Msg("replacing stale waiting slot")
		w = nil
	}

	if w == nil {
		s.waiting = p
		s.emit(p, &Event{Kind: EventWaiting})
		return
	}
	s.pair(w, p)
}

func (s *state) pair(initiator, responder *Participant) {
	sess := &Session{
		ID:        SessionID(initiator.ID, responder.ID),
		CreatedAt: s.now(),
		members:   [2]*Participant{initiator, responder},
		initiator: initiator,
	}
	s.sessions[sess.ID] = sess
	s.waiting = nil

	initiator.session, initiator.partner = sess, responder
	responder.session, responder.partner = sess, initiator

	s.emit(initiator, &Event{
		Kind:      EventPartnerFound,
		SessionID: sess.ID,
		Profile:   responder.Profile,
		Initiator: true,
	})
	s.emit(responder, &Event{
		Kind:      EventPartnerFound,
		SessionID: sess.ID,
		Profile:   initiator.Profile,
	})

	s.log.Info().
		Str("session_id", sess.ID).
		Str("initiator_id", initiator.ID).
		Str("responder_id", responder.ID).
		Msg("partners paired")
}

// cancelSearch removes p from the waiting slot if it holds it.
func (s *state) cancelSearch(p *Participant) bool {
	if s.waiting != p {
		return false
	}
	s.waiting = nil
	return true
}
