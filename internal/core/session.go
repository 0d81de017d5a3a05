package core

import "time"

// Session is one active pairing of exactly two participants.
type Session struct {
	ID        string
	CreatedAt time.Time

	members   [2]*Participant
	initiator *Participant
}

// SessionID derives the session identifier from the ordered pair
// (waiting participant first). Either side can address the session with it.
func SessionID(initiatorID, responderID string) string {
	return "room-" + initiatorID + "-" + responderID
}

// Has reports whether p is one of the two members.
func (s *Session) Has(p *Participant) bool {
	return s.members[0] == p || s.members[1] == p
}

// EndReason says why a session was torn down.
type EndReason int

const (
	// ReasonSkip is an explicit "next partner" from a member.
	ReasonSkip EndReason = iota
	// ReasonReport is a skip that also files a report.
	ReasonReport
	// ReasonDisconnect is the loss of a member's connection.
	ReasonDisconnect
)

func (r EndReason) String() string {
	switch r {
	case ReasonSkip:
		return "skip"
	case ReasonReport:
		return "report"
	case ReasonDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Report is handed to the ReportSink when a member reports its partner.
type Report struct {
	SessionID  string
	ReporterID string
	ReportedID string
	Reason     string
	CreatedAt  time.Time
}

// ReportSink receives filed reports. Implementations must not block.
type ReportSink interface {
	Record(report Report)
}

// endSession tears down p's session. It returns false when p had none,
// which makes repeated calls harmless.
func (s *state) endSession(p *Participant, reason EndReason, detail string) bool {
	sess := p.session
	if sess == nil {
		return false
	}
	partner := p.partner

	delete(s.sessions, sess.ID)
	p.session, p.partner = nil, nil
	if partner != nil && partner.session == sess {
		partner.session, partner.partner = nil, nil
		if partner.connected {
			s.emit(partner, &Event{Kind: EventPartnerDisconnected, SessionID: sess.ID})
		}
	}

	if reason == ReasonReport && s.reports != nil && partner != nil {
		s.reports.Record(Report{
			SessionID:  sess.ID,
			ReporterID: p.ID,
			ReportedID: partner.ID,
			Reason:     detail,
			CreatedAt:  s.now(),
		})
	}

	s.log.Debug().
		Str("session_id", sess.ID).
		Str("participant_id", p.ID).
		Stringer("reason", reason).
		Dur("lifetime", s.now().Sub(sess.CreatedAt)).
		Msg("session ended")
	return true
}
