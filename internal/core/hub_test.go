package core

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"
)

func TestHubWaitingThenPartnerFound(t *testing.T) {
	hub := startHub(t, nil)

	alice := connect(t, hub, "a")
	bob := connect(t, hub, "b")

	alice.Commands <- &Command{Kind: CommandFindPartner, Profile: Profile{Nickname: "alice"}}
	mustEvent(t, alice.Events, EventWaiting)

	bob.Commands <- &Command{Kind: CommandFindPartner, Profile: Profile{Nickname: "bob", Gender: "m"}}

	aliceEv := mustEvent(t, alice.Events, EventPartnerFound)
	bobEv := mustEvent(t, bob.Events, EventPartnerFound)

	if aliceEv.SessionID == "" || aliceEv.SessionID != bobEv.SessionID {
		t.Fatalf("session ids differ: %q vs %q", aliceEv.SessionID, bobEv.SessionID)
	}
	if aliceEv.SessionID != SessionID("a", "b") {
		t.Fatalf("unexpected session id %q", aliceEv.SessionID)
	}
	if !aliceEv.Initiator || bobEv.Initiator {
		t.Fatalf("expected waiting participant to be initiator: alice=%v bob=%v", aliceEv.Initiator, bobEv.Initiator)
	}
	if aliceEv.Profile.Nickname != "bob" || bobEv.Profile.Nickname != "alice" {
		t.Fatalf("unexpected partner profiles: %+v / %+v", aliceEv.Profile, bobEv.Profile)
	}
	if bobEv.Profile.Gender != "any" {
		t.Fatalf("expected default gender, got %q", bobEv.Profile.Gender)
	}
}

func TestHubRelaysOfferOnlyToPartner(t *testing.T) {
	hub := startHub(t, nil)

	alice := connect(t, hub, "a")
	bob := connect(t, hub, "b")
	carol := connect(t, hub, "c")

	alice.Commands <- &Command{Kind: CommandFindPartner}
	bob.Commands <- &Command{Kind: CommandFindPartner}
	sessionID := mustEvent(t, bob.Events, EventPartnerFound).SessionID

	offer := json.RawMessage(`{"type":"offer","sdp":"v=0"}`)
	alice.Commands <- &Command{Kind: CommandOffer, SessionID: sessionID, Payload: offer}

	ev := mustEvent(t, bob.Events, EventOffer)
	if ev.From != "a" || string(ev.Payload) != string(offer) || ev.SessionID != sessionID {
		t.Fatalf("unexpected offer event: %+v", ev)
	}
	if n := countEvents(bob.Events, EventOffer, 100*time.Millisecond); n != 0 {
		t.Fatalf("bob received %d extra offers", n)
	}
	if n := countEvents(carol.Events, EventOffer, 100*time.Millisecond); n != 0 {
		t.Fatalf("carol received %d offers", n)
	}
	if n := countEvents(alice.Events, EventOffer, 100*time.Millisecond); n != 0 {
		t.Fatalf("offer echoed back to sender %d times", n)
	}
}

func TestHubDropsRelayFromNonMember(t *testing.T) {
	hub := startHub(t, nil)

	alice := connect(t, hub, "a")
	bob := connect(t, hub, "b")
	mallory := connect(t, hub, "m")

	alice.Commands <- &Command{Kind: CommandFindPartner}
	bob.Commands <- &Command{Kind: CommandFindPartner}
	sessionID := mustEvent(t, bob.Events, EventPartnerFound).SessionID

	mallory.Commands <- &Command{Kind: CommandICECandidate, SessionID: sessionID, Payload: json.RawMessage(`{}`)}
	mallory.Commands <- &Command{Kind: CommandSendMessage, SessionID: sessionID, Message: Message{Text: "hi"}}

	for _, c := range []*Client{alice, bob, mallory} {
		if n := countEvents(c.Events, EventICECandidate, 100*time.Millisecond); n != 0 {
			t.Fatalf("client %s received forged candidate", c.ID)
		}
	}
	if n := countEvents(bob.Events, EventMessage, 50*time.Millisecond); n != 0 {
		t.Fatalf("bob received forged message")
	}
}

func TestHubAbruptDisconnectNotifiesPartnerOnce(t *testing.T) {
	hub := startHub(t, nil)

	alice := connect(t, hub, "a")
	bob := connect(t, hub, "b")

	alice.Commands <- &Command{Kind: CommandFindPartner}
	bob.Commands <- &Command{Kind: CommandFindPartner}
	mustEvent(t, bob.Events, EventPartnerFound)

	before, err := hub.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}

	hub.UnregisterClient(alice)

	mustEvent(t, bob.Events, EventPartnerDisconnected)
	online := mustEvent(t, bob.Events, EventOnlineUsers)
	if online.Count != before.Online-1 {
		t.Fatalf("expected online %d, got %d", before.Online-1, online.Count)
	}
	if n := countEvents(bob.Events, EventPartnerDisconnected, 100*time.Millisecond); n != 0 {
		t.Fatalf("bob received %d extra partnerDisconnected", n)
	}

	bob.Commands <- &Command{Kind: CommandFindPartner}
	mustEvent(t, bob.Events, EventWaiting)

	after, err := hub.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if after.Sessions != 0 || after.Waiting != 1 {
		t.Fatalf("unexpected stats after disconnect: %+v", after)
	}
}

func TestHubSkipThenFindPartner(t *testing.T) {
	hub := startHub(t, nil)

	alice := connect(t, hub, "a")
	bob := connect(t, hub, "b")
	carol := connect(t, hub, "c")

	alice.Commands <- &Command{Kind: CommandFindPartner}
	bob.Commands <- &Command{Kind: CommandFindPartner}
	old := mustEvent(t, alice.Events, EventPartnerFound).SessionID

	carol.Commands <- &Command{Kind: CommandFindPartner}
	mustEvent(t, carol.Events, EventWaiting)

	alice.Commands <- &Command{Kind: CommandDisconnectFromChat, SessionID: old}
	alice.Commands <- &Command{Kind: CommandFindPartner}

	mustEvent(t, bob.Events, EventPartnerDisconnected)
	ev := mustEvent(t, alice.Events, EventPartnerFound)
	if ev.SessionID != SessionID("c", "a") {
		t.Fatalf("expected new session with carol, got %q", ev.SessionID)
	}

	// A message for the old session must go nowhere.
	alice.Commands <- &Command{Kind: CommandSendMessage, SessionID: old, Message: Message{Text: "still there?"}}
	if n := countEvents(bob.Events, EventMessage, 100*time.Millisecond); n != 0 {
		t.Fatalf("message leaked into ended session")
	}

	st, err := hub.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Sessions != 1 {
		t.Fatalf("expected exactly one live session, got %d", st.Sessions)
	}
}

func TestHubCandidateAfterSessionEndedIsDropped(t *testing.T) {
	hub := startHub(t, nil)

	alice := connect(t, hub, "a")
	bob := connect(t, hub, "b")

	alice.Commands <- &Command{Kind: CommandFindPartner}
	bob.Commands <- &Command{Kind: CommandFindPartner}
	sessionID := mustEvent(t, bob.Events, EventPartnerFound).SessionID

	bob.Commands <- &Command{Kind: CommandDisconnectFromChat, SessionID: sessionID}
	mustEvent(t, alice.Events, EventPartnerDisconnected)

	alice.Commands <- &Command{Kind: CommandICECandidate, SessionID: sessionID, Payload: json.RawMessage(`{"candidate":""}`)}
	if n := countEvents(bob.Events, EventICECandidate, 100*time.Millisecond); n != 0 {
		t.Fatalf("late candidate was relayed")
	}

	st, err := hub.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Sessions != 0 {
		t.Fatalf("session resurrected: %+v", st)
	}
}

func TestHubTeardownIsIdempotent(t *testing.T) {
	hub := startHub(t, nil)

	alice := connect(t, hub, "a")
	bob := connect(t, hub, "b")

	alice.Commands <- &Command{Kind: CommandFindPartner}
	bob.Commands <- &Command{Kind: CommandFindPartner}
	sessionID := mustEvent(t, bob.Events, EventPartnerFound).SessionID

	alice.Commands <- &Command{Kind: CommandDisconnectFromChat, SessionID: sessionID}
	alice.Commands <- &Command{Kind: CommandDisconnectFromChat, SessionID: sessionID}
	bob.Commands <- &Command{Kind: CommandDisconnectFromChat, SessionID: sessionID}

	if n := countEvents(bob.Events, EventPartnerDisconnected, 200*time.Millisecond); n != 1 {
		t.Fatalf("expected one partnerDisconnected for bob, got %d", n)
	}
	if n := countEvents(alice.Events, EventPartnerDisconnected, 100*time.Millisecond); n != 0 {
		t.Fatalf("alice notified about her own skip")
	}
}

func TestHubReportRecordsAndAutoContinues(t *testing.T) {
	sink := newRecordingSink()
	hub := startHub(t, sink)

	alice := connect(t, hub, "a")
	bob := connect(t, hub, "b")

	alice.Commands <- &Command{Kind: CommandFindPartner}
	bob.Commands <- &Command{Kind: CommandFindPartner, AutoContinue: true}
	sessionID := mustEvent(t, bob.Events, EventPartnerFound).SessionID

	bob.Commands <- &Command{Kind: CommandReportUser, SessionID: sessionID, Reason: "spam"}

	mustEvent(t, alice.Events, EventPartnerDisconnected)
	mustEvent(t, bob.Events, EventWaiting)

	select {
	case r := <-sink.reports:
		if r.ReporterID != "b" || r.ReportedID != "a" || r.Reason != "spam" || r.SessionID != sessionID {
			t.Fatalf("unexpected report: %+v", r)
		}
	case <-time.After(time.Second):
		t.Fatalf("report not recorded")
	}
}

func TestHubDuplicateFindPartnerDoesNotSelfPair(t *testing.T) {
	hub := startHub(t, nil)

	alice := connect(t, hub, "a")

	alice.Commands <- &Command{Kind: CommandFindPartner}
	alice.Commands <- &Command{Kind: CommandFindPartner}

	if n := countEvents(alice.Events, EventWaiting, 200*time.Millisecond); n != 2 {
		t.Fatalf("expected two waiting events, got %d", n)
	}

	st, err := hub.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Sessions != 0 || st.Waiting != 1 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestHubDisconnectFromChatCancelsSearch(t *testing.T) {
	hub := startHub(t, nil)

	alice := connect(t, hub, "a")
	bob := connect(t, hub, "b")

	alice.Commands <- &Command{Kind: CommandFindPartner}
	mustEvent(t, alice.Events, EventWaiting)
	alice.Commands <- &Command{Kind: CommandDisconnectFromChat}

	bob.Commands <- &Command{Kind: CommandFindPartner}
	mustEvent(t, bob.Events, EventWaiting)
}

func TestHubRemoteCameraUsesCurrentSession(t *testing.T) {
	hub := startHub(t, nil)

	alice := connect(t, hub, "a")
	bob := connect(t, hub, "b")

	alice.Commands <- &Command{Kind: CommandFindPartner}
	bob.Commands <- &Command{Kind: CommandFindPartner}
	mustEvent(t, bob.Events, EventPartnerFound)

	alice.Commands <- &Command{Kind: CommandRemoteCamera, Enabled: false}
	alice.Commands <- &Command{Kind: CommandTyping, SessionID: SessionID("a", "b")}

	ev := mustEvent(t, bob.Events, EventRemoteCamera)
	if ev.Enabled || ev.From != "a" {
		t.Fatalf("unexpected camera event: %+v", ev)
	}
	mustEvent(t, bob.Events, EventTyping)
}

func TestHubShutdownClosesClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil, nil)
	go hub.Run(ctx)

	alice := connect(t, hub, "a")
	cancel()

	select {
	case <-alice.Done():
	case <-time.After(time.Second):
		t.Fatalf("client not released on shutdown")
	}

	// Calls after shutdown must not block.
	hub.UnregisterClient(alice)
	if _, err := hub.Stats(context.Background()); err == nil {
		t.Fatalf("expected error from stopped hub")
	}
}

func TestHubBusyClientStillReceivesPartnerFound(t *testing.T) {
	hub := startHub(t, nil)

	alice := NewClient("alice", 8)
	hub.RegisterClient(alice)
	for i := range 10 {
		connect(t, hub, "x"+strconv.Itoa(i))
	}
	bob := connect(t, hub, "bob")

	alice.Commands <- &Command{Kind: CommandFindPartner}
	bob.Commands <- &Command{Kind: CommandFindPartner}

	ev := mustEvent(t, alice.Events, EventPartnerFound)
	if ev.SessionID != SessionID("alice", "bob") {
		t.Fatalf("unexpected session id %q", ev.SessionID)
	}
	mustEvent(t, bob.Events, EventPartnerFound)
}

func TestHubEvictsClientThatStopsReading(t *testing.T) {
	hub := startHub(t, nil)

	alice := NewClient("alice", 2)
	hub.RegisterClient(alice)
	bob := connect(t, hub, "bob")

	bob.Commands <- &Command{Kind: CommandFindPartner}
	mustEvent(t, bob.Events, EventWaiting)
	alice.Commands <- &Command{Kind: CommandFindPartner}
	sessionID := mustEvent(t, bob.Events, EventPartnerFound).SessionID

	// alice never reads; relayed messages overflow her buffer.
	for range 4 {
		bob.Commands <- &Command{Kind: CommandSendMessage, SessionID: sessionID, Message: Message{Text: "hi"}}
	}

	ev := mustEvent(t, bob.Events, EventPartnerDisconnected)
	if ev.SessionID != sessionID {
		t.Fatalf("unexpected session id %q", ev.SessionID)
	}
	select {
	case <-alice.Done():
	case <-time.After(time.Second):
		t.Fatalf("slow client was not released")
	}

	st, err := hub.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Sessions != 0 || st.Online != 1 {
		t.Fatalf("unexpected stats after eviction: %+v", st)
	}
}

func TestHubDoneClosesAfterRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(nil, nil)
	go hub.Run(ctx)
	cancel()

	select {
	case <-hub.Done():
	case <-time.After(time.Second):
		t.Fatalf("hub did not stop")
	}
}
