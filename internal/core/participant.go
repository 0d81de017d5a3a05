package core

import "github.com/samber/lo"

// Profile is the opaque self-description a participant passes to its partner.
type Profile struct {
	Nickname string
	Age      string
	Gender   string
	Country  string
}

func (p Profile) normalized() Profile {
	p.Gender = lo.CoalesceOrEmpty(p.Gender, "any")
	return p
}

// Participant is the coordinator's record of one live connection.
type Participant struct {
	ID           string
	Profile      Profile
	AutoContinue bool

	client    *Client
	connected bool
	session   *Session
	partner   *Participant
	slow      bool
}
