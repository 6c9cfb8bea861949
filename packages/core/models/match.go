package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	MatchStatusActive    = "ACTIVE"
	MatchStatusCompleted = "COMPLETED"
	MatchStatusDisputed  = "DISPUTED"
)

// Match is one played set between two participants. Identifier columns are
// nullable because a participant may not resolve to an account at creation
// time; the audit columns are populated only when the match completes.
type Match struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Player1Username  string     `gorm:"size:20;not null;index" json:"player1_username"`
	Player2Username  string     `gorm:"size:20;not null;index" json:"player2_username"`
	WinnerUsername   *string    `gorm:"size:20" json:"winner_username"`
	Player1ID        *uuid.UUID `gorm:"type:uuid" json:"player1_id"`
	Player2ID        *uuid.UUID `gorm:"type:uuid" json:"player2_id"`
	WinnerID         *uuid.UUID `gorm:"type:uuid" json:"winner_id"`
	Player1Character string     `gorm:"size:64;not null" json:"player1_character"`
	Player2Character string     `gorm:"size:64;not null" json:"player2_character"`
	Status           string     `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	PlayedAt         time.Time  `gorm:"not null" json:"played_at"`
	Player1EloBefore *int       `json:"player1_elo_before"`
	Player1EloAfter  *int       `json:"player1_elo_after"`
	Player1KFactor   *int       `json:"player1_k_factor"`
	Player2EloBefore *int       `json:"player2_elo_before"`
	Player2EloAfter  *int       `json:"player2_elo_after"`
	Player2KFactor   *int       `json:"player2_k_factor"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (Match) TableName() string {
	return "matches"
}

func (m *Match) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.PlayedAt.IsZero() {
		m.PlayedAt = time.Now()
	}
	return nil
}

// IsParticipant matches handles case-insensitively, the same normalization
// the coordination maps use.
func (m *Match) IsParticipant(username string) bool {
	return strings.EqualFold(m.Player1Username, username) || strings.EqualFold(m.Player2Username, username)
}

// Opponent returns the other participant's handle, or "" when the given
// handle is not part of the match.
func (m *Match) Opponent(username string) string {
	switch {
	case strings.EqualFold(m.Player1Username, username):
		return m.Player2Username
	case strings.EqualFold(m.Player2Username, username):
		return m.Player1Username
	default:
		return ""
	}
}

// InviteRequest opens an interaction with another player
type InviteRequest struct {
	Opponent string `json:"opponent" binding:"required"`
}

// InviteActionRequest answers or withdraws a pending invite
type InviteActionRequest struct {
	InviteID   string `json:"invite_id" binding:"required"`
	Challenger string `json:"challenger" binding:"required"`
	Opponent   string `json:"opponent" binding:"required"`
}

// ReportRequest carries the first result claim for a match
type ReportRequest struct {
	MatchID string `json:"match_id" binding:"required"`
	Winner  string `json:"winner" binding:"required"`
}

// ConfirmRequest carries the second result claim for a match
type ConfirmRequest struct {
	MatchID string `json:"match_id" binding:"required"`
	Winner  string `json:"winner" binding:"required"`
}

// RematchRequest accepts or declines the rematch offered after confirmation
type RematchRequest struct {
	MatchID string `json:"match_id" binding:"required"`
	Accept  *bool  `json:"accept" binding:"required"`
}
