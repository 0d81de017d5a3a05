package core

import "time"

// Message is a chat line relayed between session members. It is never stored.
type Message struct {
	From      string
	Text      string
	CreatedAt time.Time
}
