package negotiation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gammazero/deque"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/babyboom-server/internal/retry"
)

// Options tune a Machine. The zero value is usable.
type Options struct {
	// Wait bounds how long an early offer or answer waits for the
	// machine to reach a state that can accept it.
	Wait retry.Config
	// OnStateChange is called after every transition.
	OnStateChange func(State)
	Logger        *zerolog.Logger
}

// Machine negotiates a single session. A new machine is created for every
// session; it is never reused after Close.
type Machine struct {
	sessionID string
	role      Role
	transport Transport
	signaler  Signaler
	wait      retry.Config
	onState   func(State)
	log       zerolog.Logger

	// state is read lock-free by transport callbacks.
	state atomic.Int32

	// mu serializes description handling and candidate bookkeeping.
	mu      sync.Mutex
	pending deque.Deque[webrtc.ICECandidateInit]
	seen    map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a machine for sessionID and hooks it to the transport callbacks.
func New(sessionID string, role Role, transport Transport, signaler Signaler, opts Options) *Machine {
	wait := opts.Wait
	if wait.Timeout <= 0 && wait.Attempts <= 0 {
		wait = retry.DefaultConfig()
	}
	l := zerolog.Nop()
	if opts.Logger != nil {
		l = *opts.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Machine{
		sessionID: sessionID,
		role:      role,
		transport: transport,
		signaler:  signaler,
		wait:      wait,
		onState:   opts.OnStateChange,
		log:       l.With().Str("session_id", sessionID).Stringer("role", role).Logger(),
		seen:      make(map[string]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}

	transport.OnICECandidate(m.onLocalCandidate)
	transport.OnConnectionStateChange(m.onConnectionState)
	return m
}

// SessionID returns the session this machine negotiates.
func (m *Machine) SessionID() string { return m.sessionID }

// Role returns the machine's role.
func (m *Machine) Role() Role { return m.role }

// State returns the current state.
func (m *Machine) State() State {
	return State(m.state.Load())
}

// transition moves to next unless the machine already ended.
func (m *Machine) transition(next State) bool {
	for {
		cur := State(m.state.Load())
		if cur.Terminal() {
			return false
		}
		if cur == next {
			return true
		}
		if m.state.CompareAndSwap(int32(cur), int32(next)) {
			m.log.Debug().Stringer("from", cur).Stringer("to", next).Msg("negotiation state")
			if m.onState != nil {
				m.onState(next)
			}
			return true
		}
	}
}

// Start sends the offer when the machine is the initiator.
func (m *Machine) Start() error {
	if m.role != RoleInitiator {
		return ErrWrongRole
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() != StateIdle {
		if m.State().Terminal() {
			return ErrClosed
		}
		return nil
	}
	m.transition(StateOfferSent)

	offer, err := m.transport.CreateOffer()
	if err != nil {
		m.fail(fmt.Errorf("create offer: %w", err), false)
		return err
	}
	if err := m.signaler.SendOffer(m.sessionID, offer); err != nil {
		m.fail(fmt.Errorf("send offer: %w", err), false)
		return err
	}
	return nil
}

// HandleOffer applies the partner's offer and replies with an answer.
func (m *Machine) HandleOffer(desc webrtc.SessionDescription) error {
	if m.State().Terminal() {
		return ErrClosed
	}
	if desc.Type != webrtc.SDPTypeOffer {
		return fmt.Errorf("%w: expected offer, got %s", ErrMalformed, desc.Type)
	}
	if err := checkSDP(desc); err != nil {
		return err
	}

	if err := m.waitFor(func() bool {
		return m.State() != StateOfferSent && m.transport.SignalingState() == webrtc.SignalingStateStable
	}); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.State()
	if prev.Terminal() {
		return ErrClosed
	}
	if prev == StateOfferSent {
		// lost the race against a local offer between the wait and the lock
		return ErrNegotiationTimeout
	}
	m.transition(StateOfferReceived)

	if err := m.transport.SetRemoteDescription(desc); err != nil {
		m.transition(prev)
		return fmt.Errorf("set remote offer: %w", err)
	}
	m.flushPending()

	answer, err := m.transport.CreateAnswer()
	if err != nil {
		m.fail(fmt.Errorf("create answer: %w", err), false)
		return err
	}
	if err := m.signaler.SendAnswer(m.sessionID, answer); err != nil {
		m.fail(fmt.Errorf("send answer: %w", err), false)
		return err
	}
	m.transition(StateStable)
	return nil
}

// HandleAnswer applies the partner's answer to our offer.
func (m *Machine) HandleAnswer(desc webrtc.SessionDescription) error {
	if m.State().Terminal() {
		return ErrClosed
	}
	if desc.Type != webrtc.SDPTypeAnswer {
		return fmt.Errorf("%w: expected answer, got %s", ErrMalformed, desc.Type)
	}
	if err := checkSDP(desc); err != nil {
		return err
	}

	if err := m.waitFor(func() bool {
		return m.State() == StateOfferSent && m.transport.SignalingState() == webrtc.SignalingStateHaveLocalOffer
	}); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() != StateOfferSent {
		if m.State().Terminal() {
			return ErrClosed
		}
		return ErrNegotiationTimeout
	}
	if err := m.transport.SetRemoteDescription(desc); err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}
	m.flushPending()
	m.transition(StateStable)
	return nil
}

// HandleCandidate applies a partner candidate, or queues it until a remote
// description exists. Malformed and duplicate candidates are ignored.
func (m *Machine) HandleCandidate(c webrtc.ICECandidateInit) error {
	if m.State().Terminal() {
		return ErrClosed
	}
	key, err := candidateKey(c)
	if err != nil {
		m.log.Debug().Err(err).Msg("ignoring candidate")
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if key != "" {
		if _, dup := m.seen[key]; dup {
			return nil
		}
		m.seen[key] = struct{}{}
	}

	if !m.transport.HasRemoteDescription() {
		m.pending.PushBack(c)
		return nil
	}
	if err := m.transport.AddICECandidate(c); err != nil {
		m.log.Warn().Err(err).Msg("add candidate")
		return fmt.Errorf("add candidate: %w", err)
	}
	return nil
}

// Pending returns how many candidates wait for a remote description.
func (m *Machine) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending.Len()
}

// Close ends the session. It is safe to call more than once.
func (m *Machine) Close() error {
	if !m.end(StateClosed) {
		return nil
	}
	m.mu.Lock()
	m.pending.Clear()
	m.mu.Unlock()
	return m.transport.Close()
}

// Done is closed when the machine reached a terminal state.
func (m *Machine) Done() <-chan struct{} {
	return m.ctx.Done()
}

func (m *Machine) end(final State) bool {
	for {
		cur := State(m.state.Load())
		if cur.Terminal() {
			return false
		}
		if m.state.CompareAndSwap(int32(cur), int32(final)) {
			m.cancel()
			m.log.Debug().Stringer("from", cur).Stringer("to", final).Msg("negotiation ended")
			if m.onState != nil {
				m.onState(final)
			}
			return true
		}
	}
}

// fail moves to Failed and closes the transport. Callbacks running on the
// transport's own goroutines close it asynchronously.
func (m *Machine) fail(err error, async bool) {
	if !m.end(StateFailed) {
		return
	}
	m.log.Warn().Err(err).Msg("negotiation failed")
	if async {
		go m.transport.Close()
		return
	}
	m.transport.Close()
}

// waitFor blocks until ready holds, the machine ends, or the wait budget
// runs out. Callers must not hold mu.
func (m *Machine) waitFor(ready func() bool) error {
	err := retry.WaitUntil(m.ctx, m.wait, ready, func() bool { return m.State().Terminal() })
	switch {
	case err == nil:
		return nil
	case errors.Is(err, retry.ErrExhausted):
		m.log.Debug().Stringer("state", m.State()).Msg("dropping description after wait")
		return ErrNegotiationTimeout
	default:
		return ErrClosed
	}
}

// flushPending applies queued candidates. Caller holds mu.
func (m *Machine) flushPending() {
	for m.pending.Len() > 0 {
		c := m.pending.PopFront()
		if err := m.transport.AddICECandidate(c); err != nil {
			m.log.Warn().Err(err).Msg("add queued candidate")
		}
	}
}

func (m *Machine) onLocalCandidate(c webrtc.ICECandidateInit) {
	if m.State().Terminal() {
		return
	}
	if err := m.signaler.SendCandidate(m.sessionID, c); err != nil {
		m.log.Debug().Err(err).Msg("send candidate")
	}
}

func (m *Machine) onConnectionState(s webrtc.PeerConnectionState) {
	switch s {
	case webrtc.PeerConnectionStateConnected:
		m.log.Info().Msg("peer connected")
	case webrtc.PeerConnectionStateFailed,
		webrtc.PeerConnectionStateDisconnected,
		webrtc.PeerConnectionStateClosed:
		m.fail(fmt.Errorf("transport %s", s), true)
	}
}
