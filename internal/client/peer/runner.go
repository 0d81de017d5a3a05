// Package peer is the participant side: it follows the coordinator's
// events, runs one negotiation machine per session and handles chat input.
package peer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/babyboom-server/internal/client/signaling"
	"github.com/vovakirdan/babyboom-server/internal/negotiation"
	"github.com/vovakirdan/babyboom-server/internal/proto"
	"github.com/vovakirdan/babyboom-server/internal/retry"
)

// ErrDisconnected is returned by Run when the coordinator connection dropped.
var ErrDisconnected = errors.New("peer: coordinator connection closed")

// Conn is the coordinator connection used by the runner.
type Conn interface {
	negotiation.Signaler
	Send(typ string, data any) error
	Incoming() <-chan *signaling.Envelope
}

// TransportFactory builds the peer connection for a new session.
type TransportFactory func(role negotiation.Role) (negotiation.Transport, error)

// Options configure a Runner.
type Options struct {
	Profile        proto.Profile
	AutoContinue   bool
	Wait           retry.Config
	TypingDebounce time.Duration
	NewTransport   TransportFactory
	Printer        *Printer
	Logger         *zerolog.Logger
}

// Runner owns the participant's view of the current session. All fields
// below are touched only by the Run goroutine.
type Runner struct {
	conn    Conn
	opts    Options
	out     *Printer
	log     zerolog.Logger
	partner proto.Profile

	typing     func(func())
	typingSent atomic.Bool

	selfID    string
	sessionID string
	machine   *negotiation.Machine
}

// NewRunner creates a runner on an established coordinator connection.
func NewRunner(conn Conn, opts Options) *Runner {
	if opts.TypingDebounce <= 0 {
		opts.TypingDebounce = 500 * time.Millisecond
	}
	if opts.Printer == nil {
		opts.Printer = NewPrinter(io.Discard)
	}
	l := zerolog.Nop()
	if opts.Logger != nil {
		l = *opts.Logger
	}
	return &Runner{
		conn:   conn,
		opts:   opts,
		out:    opts.Printer,
		log:    l.With().Str("component", "peer").Logger(),
		typing: debounce.New(opts.TypingDebounce),
	}
}

// Run processes coordinator events and input lines until ctx ends, the
// user quits, or the connection drops.
func (r *Runner) Run(ctx context.Context, input io.Reader) error {
	defer r.endSession()

	lines := make(chan string)
	inputDone := make(chan struct{})
	go func() {
		defer close(inputDone)
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-inputDone:
			return nil
		case env, ok := <-r.conn.Incoming():
			if !ok {
				return ErrDisconnected
			}
			r.handleEnvelope(env)
		case line := <-lines:
			if quit := r.handleLine(line); quit {
				return nil
			}
		case <-r.machineDone():
			r.machineEnded()
		}
	}
}

func (r *Runner) handleEnvelope(env *signaling.Envelope) {
	switch env.Type {
	case proto.OutboundTypeConnected:
		var ev proto.EventConnected
		if err := env.Decode(&ev); err != nil {
			r.log.Debug().Err(err).Msg("bad connected event")
			return
		}
		r.selfID = ev.ID
		r.log.Debug().Str("participant_id", r.selfID).Msg("connected")
		r.findPartner()

	case proto.OutboundTypeWaiting:
		r.out.Info("Looking for someone to talk to...")

	case proto.OutboundTypePartnerFound:
		var ev proto.EventPartnerFound
		if err := env.Decode(&ev); err != nil {
			r.log.Debug().Err(err).Msg("bad partnerFound event")
			return
		}
		r.startSession(ev)

	case proto.OutboundTypeOffer, proto.OutboundTypeAnswer:
		var ev proto.EventSessionDescription
		if err := env.Decode(&ev); err != nil || !r.current(ev.SessionID) || r.machine == nil {
			return
		}
		desc, err := negotiation.DecodeDescription(ev.SDP)
		if err != nil {
			r.log.Debug().Err(err).Msg("dropping description")
			return
		}
		m := r.machine
		handle := m.HandleAnswer
		if env.Type == proto.OutboundTypeOffer {
			handle = m.HandleOffer
		}
		// descriptions may wait for a stable state; keep reading meanwhile
		go func() {
			if err := handle(desc); err != nil {
				r.log.Debug().Err(err).Str("type", env.Type).Str("session_id", m.SessionID()).Msg("description not applied")
			}
		}()

	case proto.OutboundTypeICECandidate:
		var ev proto.EventICECandidate
		if err := env.Decode(&ev); err != nil || !r.current(ev.SessionID) || r.machine == nil {
			return
		}
		c, err := negotiation.DecodeCandidate(ev.Candidate)
		if err != nil {
			return
		}
		if err := r.machine.HandleCandidate(c); err != nil {
			r.log.Debug().Err(err).Msg("candidate not applied")
		}

	case proto.OutboundTypeMessage:
		var ev proto.EventMessage
		if err := env.Decode(&ev); err != nil || r.sessionID == "" {
			return
		}
		r.out.Chat(r.partnerName(), ev.Text, false)

	case proto.OutboundTypeTyping:
		if r.sessionID != "" {
			r.out.Info(r.partnerName() + " is typing...")
		}

	case proto.OutboundTypeRemoteCamera:
		var ev proto.EventRemoteCamera
		if err := env.Decode(&ev); err != nil || r.sessionID == "" {
			return
		}
		r.out.Info(fmt.Sprintf("%s turned the camera %s", r.partnerName(), lo.Ternary(ev.Enabled, "on", "off")))

	case proto.OutboundTypePartnerDisconnected:
		var ev proto.SessionData
		_ = env.Decode(&ev)
		if ev.SessionID != "" && !r.current(ev.SessionID) {
			return
		}
		if r.sessionID == "" {
			return
		}
		r.endSession()
		r.out.Warning("Stranger left the chat.")
		if r.opts.AutoContinue {
			r.findPartner()
		} else {
			r.out.Info("Type /next to meet someone new.")
		}

	case proto.OutboundTypeOnlineUsers:
		var ev proto.EventOnlineUsers
		if err := env.Decode(&ev); err == nil {
			r.log.Debug().Int("online", ev.Count).Msg("presence")
		}

	case proto.OutboundTypeError:
		if env.Error != nil {
			r.out.Error(env.Error.Msg)
		}

	default:
		r.log.Debug().Str("type", env.Type).Msg("ignoring event")
	}
}

func (r *Runner) startSession(ev proto.EventPartnerFound) {
	r.endSession()

	role := negotiation.RoleFromSessionID(ev.SessionID, r.selfID)
	if ev.Initiator != nil {
		role = negotiation.RoleFor(*ev.Initiator)
	}

	r.sessionID = ev.SessionID
	r.partner = ev.PartnerProfile
	r.out.Success(fmt.Sprintf("Connected with %s%s", r.partnerName(), describe(ev.PartnerProfile)))

	if r.opts.NewTransport == nil {
		return
	}
	transport, err := r.opts.NewTransport(role)
	if err != nil {
		r.out.Error("could not set up the connection: " + err.Error())
		return
	}

	sessionID := ev.SessionID
	r.machine = negotiation.New(sessionID, role, transport, r.conn, negotiation.Options{
		Wait:   r.opts.Wait,
		Logger: &r.log,
		OnStateChange: func(s negotiation.State) {
			switch s {
			case negotiation.StateStable:
				r.out.Info("Negotiation complete.")
			case negotiation.StateFailed:
				r.out.Error("Connection to partner failed. Type /next to try someone else.")
			}
		},
	})
	if r.machine.Role() == negotiation.RoleInitiator {
		if err := r.machine.Start(); err != nil {
			r.log.Warn().Err(err).Str("session_id", sessionID).Msg("start negotiation")
		}
	}
}

func (r *Runner) endSession() {
	if r.machine != nil {
		if err := r.machine.Close(); err != nil {
			r.log.Debug().Err(err).Msg("close transport")
		}
		r.machine = nil
	}
	r.sessionID = ""
	r.partner = proto.Profile{}
}

// machineDone is nil between machines so the Run select ignores it.
func (r *Runner) machineDone() <-chan struct{} {
	if r.machine == nil {
		return nil
	}
	return r.machine.Done()
}

// machineEnded handles a machine that failed on its own. The session stays
// open for chat unless auto-continue asks for the next partner.
func (r *Runner) machineEnded() {
	m := r.machine
	r.machine = nil
	if m.State() != negotiation.StateFailed || m.SessionID() != r.sessionID {
		return
	}
	if !r.opts.AutoContinue {
		return
	}
	r.send(proto.InboundTypeDisconnectFromChat, proto.SessionData{SessionID: r.sessionID})
	r.endSession()
	r.out.Info("Looking for someone new...")
}

func (r *Runner) current(sessionID string) bool {
	return sessionID != "" && sessionID == r.sessionID
}

func (r *Runner) findPartner() {
	r.send(proto.InboundTypeFindPartner, proto.FindPartnerData{
		Profile:      r.opts.Profile,
		AutoContinue: r.opts.AutoContinue,
	})
}

func (r *Runner) send(typ string, data any) {
	if err := r.conn.Send(typ, data); err != nil {
		r.log.Warn().Err(err).Str("type", typ).Msg("send")
	}
}

// handleLine runs one line of user input. It returns true on /quit.
func (r *Runner) handleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}

	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit", "/exit":
		return true

	case "/skip", "/next":
		if r.sessionID != "" {
			r.send(proto.InboundTypeDisconnectFromChat, proto.SessionData{SessionID: r.sessionID})
			r.endSession()
			// with auto-continue the coordinator queues us again itself
			if r.opts.AutoContinue {
				return false
			}
		}
		r.findPartner()

	case "/report":
		if r.sessionID == "" {
			r.out.Warning("Nobody to report.")
			return false
		}
		r.send(proto.InboundTypeReportUser, proto.ReportData{SessionID: r.sessionID, Reason: strings.TrimSpace(arg)})
		r.endSession()
		r.out.Info("Report sent.")

	case "/camera":
		if r.sessionID == "" {
			return false
		}
		enabled := strings.EqualFold(strings.TrimSpace(arg), "on")
		r.send(proto.InboundTypeRemoteCamera, proto.RemoteCameraData{SessionID: r.sessionID, Enabled: enabled})

	default:
		if strings.HasPrefix(cmd, "/") {
			r.out.Warning("Unknown command " + cmd)
			return false
		}
		if r.sessionID == "" {
			r.out.Warning("You are not talking to anyone yet.")
			return false
		}
		// one typing notice per burst of lines; the flag rearms after a quiet period
		if r.typingSent.CompareAndSwap(false, true) {
			r.send(proto.InboundTypeTyping, proto.SessionData{SessionID: r.sessionID})
		}
		r.typing(func() { r.typingSent.Store(false) })
		r.send(proto.InboundTypeMessage, proto.MessageData{SessionID: r.sessionID, Text: line})
		r.out.Chat("You", line, true)
	}
	return false
}

func (r *Runner) partnerName() string {
	return lo.CoalesceOrEmpty(r.partner.Nickname, "Stranger")
}

func describe(p proto.Profile) string {
	parts := lo.Compact([]string{string(p.Age), lo.Ternary(p.Gender == "any", "", p.Gender), p.Country})
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}
