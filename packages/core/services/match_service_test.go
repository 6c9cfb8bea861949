package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"core/models"

	"github.com/google/uuid"
)

type fakeStore struct {
	mu      sync.Mutex
	matches map[string]*models.Match
}

func newFakeStore() *fakeStore {
	return &fakeStore{matches: make(map[string]*models.Match)}
}

func (f *fakeStore) Insert(m *models.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *m
	f.matches[m.ID.String()] = &copied
	return nil
}

func (f *fakeStore) FindByID(id string) (*models.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return nil, errors.New("record not found")
	}
	copied := *m
	return &copied, nil
}

func (f *fakeStore) Update(m *models.Match) error {
	return f.Insert(m)
}

type fakeEngine struct {
	store *fakeStore
	fail  error
	calls int
}

func (f *fakeEngine) ProcessMatchResult(match *models.Match) (*MatchResult, error) {
	f.calls++
	if f.fail != nil {
		return nil, f.fail
	}

	before1, before2 := 1200, 1200
	after1, after2 := 1180, 1220
	if match.WinnerUsername != nil && *match.WinnerUsername == match.Player1Username {
		after1, after2 = 1220, 1180
	}
	k := 40
	match.Player1EloBefore, match.Player1EloAfter, match.Player1KFactor = &before1, &after1, &k
	match.Player2EloBefore, match.Player2EloAfter, match.Player2KFactor = &before2, &after2, &k
	if err := f.store.Update(match); err != nil {
		return nil, err
	}

	return &MatchResult{
		Player1: ParticipantResult{Username: match.Player1Username, Character: match.Player1Character, EloBefore: before1, EloAfter: after1, Delta: after1 - before1},
		Player2: ParticipantResult{Username: match.Player2Username, Character: match.Player2Character, EloBefore: before2, EloAfter: after2, Delta: after2 - before2},
	}, nil
}

type fakeIdentity struct {
	ids map[string]uuid.UUID
}

func (f *fakeIdentity) ResolveUserID(username string) *uuid.UUID {
	if id, ok := f.ids[username]; ok {
		return &id
	}
	return nil
}

type fakePool struct {
	characters map[string]string
}

func (f *fakePool) CheckedInCharacter(username string) string {
	return f.characters[username]
}

type fakeNotifier struct {
	mu      sync.Mutex
	invites map[string][]models.InviteEvent
	updates map[string][]models.MatchUpdateEvent
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{
		invites: make(map[string][]models.InviteEvent),
		updates: make(map[string][]models.MatchUpdateEvent),
	}
}

func (f *fakeNotifier) SendInvite(username string, event models.InviteEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invites[username] = append(f.invites[username], event)
}

func (f *fakeNotifier) SendMatchUpdate(username string, event models.MatchUpdateEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[username] = append(f.updates[username], event)
}

func (f *fakeNotifier) lastUpdate(t *testing.T, username string) models.MatchUpdateEvent {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.updates[username]
	if len(events) == 0 {
		t.Fatalf("no match updates delivered to %s", username)
	}
	return events[len(events)-1]
}

type fixture struct {
	service  *MatchService
	store    *fakeStore
	engine   *fakeEngine
	notifier *fakeNotifier
	coord    *Coordination
}

func newFixture() *fixture {
	store := newFakeStore()
	engine := &fakeEngine{store: store}
	notifier := newFakeNotifier()
	coord := NewCoordination()
	identity := &fakeIdentity{ids: map[string]uuid.UUID{"a": uuid.New(), "b": uuid.New()}}
	pool := &fakePool{characters: map[string]string{"a": "Fox", "b": "Marth"}}

	return &fixture{
		service:  NewMatchService(store, engine, identity, pool, notifier, coord, 20*time.Second),
		store:    store,
		engine:   engine,
		notifier: notifier,
		coord:    coord,
	}
}

// startMatch drives invite + accept and returns the active match
func (fx *fixture) startMatch(t *testing.T) *models.Match {
	t.Helper()
	inviteID, err := fx.service.Invite("a", "b")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	match, err := fx.service.Accept(inviteID, "a", "b")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	return match
}

func TestHappyPath(t *testing.T) {
	fx := newFixture()
	match := fx.startMatch(t)

	if match.Player1Character != "Fox" || match.Player2Character != "Marth" {
		t.Fatalf("characters should come from the pool, got %s/%s", match.Player1Character, match.Player2Character)
	}
	started := fx.notifier.lastUpdate(t, "b")
	if started.Status != models.MatchEventStarted {
		t.Fatalf("expected STARTED, got %s", started.Status)
	}

	if err := fx.service.Report(match.ID.String(), "a", "a"); err != nil {
		t.Fatalf("report: %v", err)
	}
	awaiting := fx.notifier.lastUpdate(t, "b")
	if awaiting.Status != models.MatchEventAwaitingConfirmation {
		t.Fatalf("expected AWAITING_CONFIRMATION, got %s", awaiting.Status)
	}
	if awaiting.ReporterUsername == nil || *awaiting.ReporterUsername != "a" {
		t.Fatal("awaiting envelope should carry the reporter")
	}

	outcome, err := fx.service.Confirm(match.ID.String(), "b", "a")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if outcome != models.MatchStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", outcome)
	}

	stored, _ := fx.store.FindByID(match.ID.String())
	if stored.Status != models.MatchStatusCompleted || stored.WinnerUsername == nil || *stored.WinnerUsername != "a" {
		t.Fatalf("persisted match wrong: %+v", stored)
	}

	offered := fx.notifier.lastUpdate(t, "a")
	if offered.Status != models.MatchEventRematchOffered {
		t.Fatalf("expected REMATCH_OFFERED, got %s", offered.Status)
	}
	if offered.ClaimedWinner == nil || *offered.ClaimedWinner != "a" {
		t.Fatal("offered envelope should carry the agreed winner")
	}
	if offered.Player1EloDelta == nil || *offered.Player1EloDelta != 20 {
		t.Fatal("winner delta should be +20")
	}
	if offered.Player2EloDelta == nil || *offered.Player2EloDelta != -20 {
		t.Fatal("loser delta should be -20")
	}

	// Locks stay held while the rematch offer is open.
	if !fx.coord.IsLocked("a") || !fx.coord.IsLocked("b") {
		t.Fatal("both players should remain locked after confirmation")
	}
}

func TestDisagreementDisputes(t *testing.T) {
	fx := newFixture()
	match := fx.startMatch(t)

	if err := fx.service.Report(match.ID.String(), "a", "a"); err != nil {
		t.Fatalf("report: %v", err)
	}
	outcome, err := fx.service.Confirm(match.ID.String(), "b", "b")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if outcome != models.MatchStatusDisputed {
		t.Fatalf("expected DISPUTED, got %s", outcome)
	}
	if fx.engine.calls != 0 {
		t.Fatal("rating engine must not run on a dispute")
	}

	stored, _ := fx.store.FindByID(match.ID.String())
	if stored.WinnerUsername != nil {
		t.Fatal("disputed match must have no winner")
	}

	offered := fx.notifier.lastUpdate(t, "b")
	if offered.Result == nil || *offered.Result != models.MatchStatusDisputed {
		t.Fatal("envelope should carry result DISPUTED")
	}
	if offered.Player1EloDelta != nil {
		t.Fatal("disputed envelope must carry no deltas")
	}
}

func TestDoubleReportRejected(t *testing.T) {
	fx := newFixture()
	match := fx.startMatch(t)

	if err := fx.service.Report(match.ID.String(), "a", "a"); err != nil {
		t.Fatalf("report: %v", err)
	}
	err := fx.service.Report(match.ID.String(), "b", "b")
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("second report should be ErrBusy, got %v", err)
	}

	report, _ := fx.coord.GetReport(match.ID.String())
	if report.ClaimedWinner != "a" {
		t.Fatalf("first claim must survive, got %s", report.ClaimedWinner)
	}
}

func TestInviteWhileBusy(t *testing.T) {
	fx := newFixture()
	fx.startMatch(t)

	_, err := fx.service.Invite("a", "c")
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("invite while locked should be ErrBusy, got %v", err)
	}
}

func TestInviteSelf(t *testing.T) {
	fx := newFixture()
	if _, err := fx.service.Invite("a", "A"); !errors.Is(err, ErrValidation) {
		t.Fatal("self-invite should fail validation")
	}
}

func TestAcceptStaleInvite(t *testing.T) {
	fx := newFixture()
	if _, err := fx.service.Accept(uuid.NewString(), "a", "b"); !errors.Is(err, ErrInvalidState) {
		t.Fatal("stale invite id should be ErrInvalidState")
	}
}

func TestCancelInvite(t *testing.T) {
	fx := newFixture()
	inviteID, err := fx.service.Invite("a", "b")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}

	if err := fx.service.Cancel(inviteID, "a", "b"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if fx.coord.IsLocked("a") || fx.coord.IsLocked("b") {
		t.Fatal("cancel should release both locks")
	}

	events := fx.notifier.invites["b"]
	if len(events) != 2 || events[1].Status != models.InviteStatusCancelled {
		t.Fatalf("opponent should receive a CANCELLED invite event, got %+v", events)
	}

	if err := fx.service.Cancel(inviteID, "a", "b"); !errors.Is(err, ErrBusy) {
		t.Fatal("cancel with stale invite id should be ErrBusy")
	}
}

func TestReportWinnerMustBeParticipant(t *testing.T) {
	fx := newFixture()
	match := fx.startMatch(t)

	if err := fx.service.Report(match.ID.String(), "a", "c"); !errors.Is(err, ErrValidation) {
		t.Fatal("outsider winner claim should fail validation")
	}
}

func TestConfirmByReporterRejected(t *testing.T) {
	fx := newFixture()
	match := fx.startMatch(t)

	if err := fx.service.Report(match.ID.String(), "a", "a"); err != nil {
		t.Fatalf("report: %v", err)
	}
	if _, err := fx.service.Confirm(match.ID.String(), "a", "a"); !errors.Is(err, ErrBusy) {
		t.Fatal("reporter confirming their own claim should be ErrBusy")
	}
}

func TestConfirmWithoutReport(t *testing.T) {
	fx := newFixture()
	match := fx.startMatch(t)

	if _, err := fx.service.Confirm(match.ID.String(), "b", "a"); !errors.Is(err, ErrInvalidState) {
		t.Fatal("confirm without a pending report should be ErrInvalidState")
	}
}

func TestConfirmRetriesAfterEngineFailure(t *testing.T) {
	fx := newFixture()
	match := fx.startMatch(t)

	if err := fx.service.Report(match.ID.String(), "a", "a"); err != nil {
		t.Fatalf("report: %v", err)
	}

	fx.engine.fail = ErrResourceBusy
	if _, err := fx.service.Confirm(match.ID.String(), "b", "a"); !errors.Is(err, ErrResourceBusy) {
		t.Fatal("engine failure should surface ErrResourceBusy")
	}

	// The report must still be pending so the confirmation can be retried.
	if _, ok := fx.coord.GetReport(match.ID.String()); !ok {
		t.Fatal("pending report must survive an engine failure")
	}

	fx.engine.fail = nil
	outcome, err := fx.service.Confirm(match.ID.String(), "b", "a")
	if err != nil {
		t.Fatalf("retry should succeed, got %v", err)
	}
	if outcome != models.MatchStatusCompleted {
		t.Fatalf("expected COMPLETED on retry, got %s", outcome)
	}
}

func TestRematchAcceptAccept(t *testing.T) {
	fx := newFixture()
	match := fx.startMatch(t)
	fx.service.Report(match.ID.String(), "a", "a")
	fx.service.Confirm(match.ID.String(), "b", "a")

	next, err := fx.service.Rematch(match.ID.String(), "a", true)
	if err != nil || next != nil {
		t.Fatalf("first accept should wait, got %v %v", next, err)
	}
	waiting := fx.notifier.lastUpdate(t, "a")
	if waiting.Status != models.MatchEventRematchWaiting {
		t.Fatalf("expected REMATCH_WAITING, got %s", waiting.Status)
	}

	next, err = fx.service.Rematch(match.ID.String(), "b", true)
	if err != nil {
		t.Fatalf("second accept: %v", err)
	}
	if next == nil {
		t.Fatal("second accept should start a new match")
	}
	if next.ID == match.ID {
		t.Fatal("rematch must be a fresh row")
	}
	if next.Player1Character != match.Player1Character || next.Player2Character != match.Player2Character {
		t.Fatal("rematch must keep the same characters")
	}
	if next.Status != models.MatchStatusActive {
		t.Fatalf("rematch should start ACTIVE, got %s", next.Status)
	}
	if !fx.coord.IsLocked("a") || !fx.coord.IsLocked("b") {
		t.Fatal("locks must stay held across the rematch transition")
	}

	started := fx.notifier.lastUpdate(t, "b")
	if started.Status != models.MatchEventStarted || started.MatchID != next.ID.String() {
		t.Fatalf("both players should get STARTED for the new match, got %+v", started)
	}
}

func TestRematchDecline(t *testing.T) {
	fx := newFixture()
	match := fx.startMatch(t)
	fx.service.Report(match.ID.String(), "a", "a")
	fx.service.Confirm(match.ID.String(), "b", "a")

	if _, err := fx.service.Rematch(match.ID.String(), "b", false); err != nil {
		t.Fatalf("decline: %v", err)
	}
	if fx.coord.IsLocked("a") || fx.coord.IsLocked("b") {
		t.Fatal("decline should release both locks")
	}
	declined := fx.notifier.lastUpdate(t, "a")
	if declined.Status != models.MatchEventRematchDeclined {
		t.Fatalf("expected REMATCH_DECLINED, got %s", declined.Status)
	}

	// First decliner wins; the other participant's answer hits a stale offer.
	if _, err := fx.service.Rematch(match.ID.String(), "a", true); !errors.Is(err, ErrInvalidState) {
		t.Fatal("late response should be ErrInvalidState")
	}
}

func TestRematchDoubleAccept(t *testing.T) {
	fx := newFixture()
	match := fx.startMatch(t)
	fx.service.Report(match.ID.String(), "a", "a")
	fx.service.Confirm(match.ID.String(), "b", "a")

	fx.service.Rematch(match.ID.String(), "a", true)
	if _, err := fx.service.Rematch(match.ID.String(), "a", true); !errors.Is(err, ErrBusy) {
		t.Fatal("accepting twice should be ErrBusy")
	}
}

func TestRematchExpiry(t *testing.T) {
	fx := newFixture()
	match := fx.startMatch(t)
	fx.service.Report(match.ID.String(), "a", "a")
	fx.service.Confirm(match.ID.String(), "b", "a")

	fx.coord.mu.Lock()
	fx.coord.pendingRematch[match.ID.String()].CreatedAt = time.Now().Add(-time.Minute)
	fx.coord.mu.Unlock()

	fx.service.ExpireRematches()

	if fx.coord.IsLocked("a") || fx.coord.IsLocked("b") {
		t.Fatal("expiry should release both locks")
	}
	declined := fx.notifier.lastUpdate(t, "b")
	if declined.Status != models.MatchEventRematchDeclined {
		t.Fatalf("expiry should emit REMATCH_DECLINED, got %s", declined.Status)
	}
}

func TestAcceptWithoutPoolCheckIn(t *testing.T) {
	fx := newFixture()
	inviteID, _ := fx.service.Invite("a", "x")
	match, err := fx.service.Accept(inviteID, "a", "x")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if match.Player2Character != UnknownCharacter {
		t.Fatalf("absent pool entry should record %q, got %q", UnknownCharacter, match.Player2Character)
	}
	if match.Player2ID != nil {
		t.Fatal("unknown handle should resolve to a nil account id")
	}
}
