package services

import (
	"fmt"
	"log"
	"strings"
	"time"

	"core/models"

	"github.com/google/uuid"
)

// MatchStore persists match rows
type MatchStore interface {
	Insert(match *models.Match) error
	FindByID(id string) (*models.Match, error)
	Update(match *models.Match) error
}

// RatingEngine finalizes a decided match against the rating rows
type RatingEngine interface {
	ProcessMatchResult(match *models.Match) (*MatchResult, error)
}

// IdentityResolver maps a handle to the account id, nil when unknown
type IdentityResolver interface {
	ResolveUserID(username string) *uuid.UUID
}

// CharacterSource reports the character a player is currently checked in
// with, "" when the player is not in the pool.
type CharacterSource interface {
	CheckedInCharacter(username string) string
}

// Notifier pushes envelopes to a player's live session, best-effort
type Notifier interface {
	SendInvite(username string, event models.InviteEvent)
	SendMatchUpdate(username string, event models.MatchUpdateEvent)
}

// UnknownCharacter is recorded when a participant is not checked in at match
// creation time.
const UnknownCharacter = "Unknown"

// MatchService drives the interaction state machine: invite, accept,
// report/confirm two-phase finalization, and the rematch window. Soft player
// locks live in Coordination; durable state lives in the store.
type MatchService struct {
	store         MatchStore
	engine        RatingEngine
	identity      IdentityResolver
	pool          CharacterSource
	notifier      Notifier
	coordination  *Coordination
	rematchWindow time.Duration
}

func NewMatchService(store MatchStore, engine RatingEngine, identity IdentityResolver, pool CharacterSource, notifier Notifier, coordination *Coordination, rematchWindow time.Duration) *MatchService {
	return &MatchService{
		store:         store,
		engine:        engine,
		identity:      identity,
		pool:          pool,
		notifier:      notifier,
		coordination:  coordination,
		rematchWindow: rematchWindow,
	}
}

// Invite opens an interaction between two idle players. Both handles are
// claimed in one step; if either is busy nothing is mutated.
func (s *MatchService) Invite(challenger, target string) (string, error) {
	if strings.EqualFold(challenger, target) {
		return "", fmt.Errorf("%w: cannot invite yourself", ErrValidation)
	}

	inviteID := uuid.NewString()
	if !s.coordination.TryLockPair(challenger, target, inviteID) {
		return "", ErrBusy
	}

	s.notifier.SendInvite(target, models.InviteEvent{
		Queue:    models.QueueInvites,
		InviteID: inviteID,
		From:     challenger,
		Status:   models.InviteStatusPending,
	})

	return inviteID, nil
}

// Accept turns a pending invite into an ACTIVE match. Characters are read
// from the pool at this moment and frozen onto the row.
func (s *MatchService) Accept(inviteID, challenger, opponent string) (*models.Match, error) {
	if !s.coordination.LockHolds(challenger, inviteID) {
		return nil, fmt.Errorf("%w: invite is no longer open", ErrInvalidState)
	}

	match := &models.Match{
		Player1Username:  challenger,
		Player2Username:  opponent,
		Player1ID:        s.identity.ResolveUserID(challenger),
		Player2ID:        s.identity.ResolveUserID(opponent),
		Player1Character: s.checkedInCharacter(challenger),
		Player2Character: s.checkedInCharacter(opponent),
		Status:           models.MatchStatusActive,
		PlayedAt:         time.Now(),
	}
	if match.ID == uuid.Nil {
		match.ID = uuid.New()
	}

	if err := s.store.Insert(match); err != nil {
		return nil, err
	}

	s.emitStarted(match)
	return match, nil
}

// Decline releases both soft locks. The release is deliberately lenient:
// the locks are advisory and the caller names both handles.
func (s *MatchService) Decline(inviteID, challenger, opponent string) {
	s.coordination.ReleasePair(challenger, opponent)
	s.notifier.SendMatchUpdate(challenger, models.MatchUpdateEvent{
		Queue:   models.QueueMatchUpdates,
		MatchID: inviteID,
		Status:  models.MatchEventDeclined,
		Player1: challenger,
		Player2: opponent,
	})
}

// Cancel withdraws an invite the challenger sent
func (s *MatchService) Cancel(inviteID, challenger, opponent string) error {
	if !s.coordination.LockHolds(challenger, inviteID) {
		return ErrBusy
	}

	s.coordination.ReleasePair(challenger, opponent)
	s.notifier.SendInvite(opponent, models.InviteEvent{
		Queue:    models.QueueInvites,
		InviteID: inviteID,
		From:     challenger,
		Status:   models.InviteStatusCancelled,
	})
	return nil
}

// Report records the first result claim for a match. A second report for
// the same match is rejected without overwriting the first; the other
// participant must confirm instead.
func (s *MatchService) Report(matchID, reporter, claimedWinner string) error {
	match, err := s.store.FindByID(matchID)
	if err != nil {
		return fmt.Errorf("%w: match %s", ErrNotFound, matchID)
	}
	if !match.IsParticipant(reporter) {
		return fmt.Errorf("%w: %s is not part of this match", ErrForbidden, reporter)
	}
	if !match.IsParticipant(claimedWinner) {
		return fmt.Errorf("%w: winner must be a participant", ErrValidation)
	}

	if !s.coordination.PutReport(matchID, reporter, claimedWinner) {
		return fmt.Errorf("%w: result already reported", ErrBusy)
	}

	event := models.MatchUpdateEvent{
		Queue:            models.QueueMatchUpdates,
		MatchID:          matchID,
		Status:           models.MatchEventAwaitingConfirmation,
		Player1:          match.Player1Username,
		Player2:          match.Player2Username,
		ReporterUsername: &reporter,
		ClaimedWinner:    &claimedWinner,
	}
	s.notifier.SendMatchUpdate(match.Player1Username, event)
	s.notifier.SendMatchUpdate(match.Player2Username, event)
	return nil
}

// Confirm is the second half of the two-phase finalization. Agreement
// completes the match and moves ratings; disagreement marks it DISPUTED and
// leaves every rating untouched. Either way a rematch offer opens and the
// player locks stay held until it resolves.
//
// The pending report is removed only after the outcome is durably committed,
// so a retry after a rating-engine failure still finds it.
func (s *MatchService) Confirm(matchID, confirmer, claimedWinner string) (string, error) {
	report, ok := s.coordination.GetReport(matchID)
	if !ok {
		return "", fmt.Errorf("%w: no pending report for this match", ErrInvalidState)
	}
	if report.Reporter == normalizeHandle(confirmer) {
		return "", fmt.Errorf("%w: you already reported this match", ErrBusy)
	}

	match, err := s.store.FindByID(matchID)
	if err != nil {
		return "", fmt.Errorf("%w: match %s", ErrNotFound, matchID)
	}
	if !match.IsParticipant(confirmer) {
		return "", fmt.Errorf("%w: %s is not part of this match", ErrForbidden, confirmer)
	}
	if !match.IsParticipant(claimedWinner) {
		return "", fmt.Errorf("%w: winner must be a participant", ErrValidation)
	}

	agreed := strings.EqualFold(report.ClaimedWinner, claimedWinner)

	var result *MatchResult
	if agreed {
		winner := report.ClaimedWinner
		match.Status = models.MatchStatusCompleted
		match.WinnerUsername = &winner

		result, err = s.engine.ProcessMatchResult(match)
		if err != nil {
			// Nothing committed; the report stays pending so confirm
			// can be retried.
			match.Status = models.MatchStatusActive
			match.WinnerUsername = nil
			return "", err
		}
	} else {
		match.Status = models.MatchStatusDisputed
		match.WinnerUsername = nil
		if err := s.store.Update(match); err != nil {
			return "", err
		}
	}

	s.coordination.RemoveReport(matchID)
	s.coordination.PutRematch(matchID, match.Player1Username, match.Player2Username)

	event := models.MatchUpdateEvent{
		Queue:         models.QueueMatchUpdates,
		MatchID:       matchID,
		Status:        models.MatchEventRematchOffered,
		Player1:       match.Player1Username,
		Player2:       match.Player2Username,
		Result:        &match.Status,
		ClaimedWinner: match.WinnerUsername,
	}
	if result != nil {
		d1, d2 := result.Player1.Delta, result.Player2.Delta
		n1, n2 := result.Player1.EloAfter, result.Player2.EloAfter
		event.Player1EloDelta, event.Player2EloDelta = &d1, &d2
		event.Player1NewElo, event.Player2NewElo = &n1, &n2
	}
	s.notifier.SendMatchUpdate(match.Player1Username, event)
	s.notifier.SendMatchUpdate(match.Player2Username, event)

	return match.Status, nil
}

// Rematch answers the offer that follows a finalized match. The first
// decline wins; a second accept after both sides agreed starts a new match
// with the same characters while the player locks stay held throughout.
func (s *MatchService) Rematch(matchID, responder string, accept bool) (*models.Match, error) {
	if !accept {
		rematch, ok := s.coordination.GetRematch(matchID)
		if !ok {
			return nil, fmt.Errorf("%w: no rematch offer for this match", ErrInvalidState)
		}
		r := normalizeHandle(responder)
		if r != rematch.Player1 && r != rematch.Player2 {
			return nil, fmt.Errorf("%w: %s is not part of this match", ErrForbidden, responder)
		}
		if _, ok := s.coordination.TakeRematch(matchID); !ok {
			return nil, fmt.Errorf("%w: no rematch offer for this match", ErrInvalidState)
		}

		s.coordination.ReleasePair(rematch.Player1, rematch.Player2)
		s.emitRematchDeclined(matchID, rematch.Player1, rematch.Player2)
		return nil, nil
	}

	switch s.coordination.AcceptRematch(matchID, responder) {
	case RematchNotFound:
		return nil, fmt.Errorf("%w: no rematch offer for this match", ErrInvalidState)
	case RematchNotParticipant:
		return nil, fmt.Errorf("%w: %s is not part of this match", ErrForbidden, responder)
	case RematchAlreadyAccepted:
		return nil, fmt.Errorf("%w: you already accepted", ErrBusy)
	case RematchWaiting:
		s.notifier.SendMatchUpdate(responder, models.MatchUpdateEvent{
			Queue:   models.QueueMatchUpdates,
			MatchID: matchID,
			Status:  models.MatchEventRematchWaiting,
		})
		return nil, nil
	}

	// Both sides accepted: start the follow-up match. Characters do not
	// change between rematches.
	previous, err := s.store.FindByID(matchID)
	if err != nil {
		return nil, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
	}

	next := &models.Match{
		ID:               uuid.New(),
		Player1Username:  previous.Player1Username,
		Player2Username:  previous.Player2Username,
		Player1ID:        previous.Player1ID,
		Player2ID:        previous.Player2ID,
		Player1Character: previous.Player1Character,
		Player2Character: previous.Player2Character,
		Status:           models.MatchStatusActive,
		PlayedAt:         time.Now(),
	}
	if err := s.store.Insert(next); err != nil {
		return nil, err
	}

	s.emitStarted(next)
	return next, nil
}

// ExpireRematches sweeps rematch offers older than the configured window,
// treating each as a decline. Called periodically by the scheduler.
func (s *MatchService) ExpireRematches() {
	expired := s.coordination.ExpireRematches(s.rematchWindow)
	for matchID, rematch := range expired {
		s.coordination.ReleasePair(rematch.Player1, rematch.Player2)
		s.emitRematchDeclined(matchID, rematch.Player1, rematch.Player2)
		log.Printf("rematch offer for match %s expired", matchID)
	}
}

func (s *MatchService) checkedInCharacter(username string) string {
	if character := s.pool.CheckedInCharacter(username); character != "" {
		return character
	}
	return UnknownCharacter
}

func (s *MatchService) emitStarted(match *models.Match) {
	event := models.MatchUpdateEvent{
		Queue:            models.QueueMatchUpdates,
		MatchID:          match.ID.String(),
		Status:           models.MatchEventStarted,
		Player1:          match.Player1Username,
		Player2:          match.Player2Username,
		Player1Character: &match.Player1Character,
		Player2Character: &match.Player2Character,
	}
	s.notifier.SendMatchUpdate(match.Player1Username, event)
	s.notifier.SendMatchUpdate(match.Player2Username, event)
}

func (s *MatchService) emitRematchDeclined(matchID, player1, player2 string) {
	event := models.MatchUpdateEvent{
		Queue:   models.QueueMatchUpdates,
		MatchID: matchID,
		Status:  models.MatchEventRematchDeclined,
		Player1: player1,
		Player2: player2,
	}
	s.notifier.SendMatchUpdate(player1, event)
	s.notifier.SendMatchUpdate(player2, event)
}
