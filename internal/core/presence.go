package core

// Presence tracks how many participants are connected.
type Presence interface {
	Join() int
	Leave() int
	Count() int
}

type counter struct {
	n int
}

// NewCounter returns an in-memory Presence. It is owned by the hub goroutine
// and does no locking.
func NewCounter() Presence {
	return &counter{}
}

func (c *counter) Join() int {
	c.n++
	return c.n
}

func (c *counter) Leave() int {
	if c.n > 0 {
		c.n--
	}
	return c.n
}

func (c *counter) Count() int {
	return c.n
}

func (s *state) broadcastOnline(count int) {
	for _, p := range s.participants {
		s.emit(p, &Event{Kind: EventOnlineUsers, Count: count})
	}
}
