package models

import (
	"time"

	"github.com/google/uuid"
)

// Player is the ladder-wide aggregate for one account. Elo is denormalized:
// it always equals the maximum over the player's per-character rows.
type Player struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	Username  string    `gorm:"size:20;uniqueIndex;not null" json:"username"`
	Elo       int       `gorm:"default:1200" json:"elo"`
	PeakElo   int       `gorm:"default:1200" json:"peak_elo"`
	Wins      int       `gorm:"default:0" json:"wins"`
	Losses    int       `gorm:"default:0" json:"losses"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	CharacterStats []CharacterStats `gorm:"foreignKey:PlayerID" json:"character_stats,omitempty"`
}

func (Player) TableName() string {
	return "players"
}

func (p *Player) TotalGames() int {
	return p.Wins + p.Losses
}

// CharacterStats is one (player, character) rating row. A fresh row starts at
// 1200/1200 with no games regardless of the player's other characters.
type CharacterStats struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	PlayerID      uint      `gorm:"not null;uniqueIndex:idx_player_character" json:"player_id"`
	CharacterName string    `gorm:"size:64;not null;uniqueIndex:idx_player_character" json:"character_name"`
	Elo           int       `gorm:"default:1200" json:"elo"`
	PeakElo       int       `gorm:"default:1200" json:"peak_elo"`
	Wins          int       `gorm:"default:0" json:"wins"`
	Losses        int       `gorm:"default:0" json:"losses"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (CharacterStats) TableName() string {
	return "player_character_stats"
}

func (cs *CharacterStats) TotalGames() int {
	return cs.Wins + cs.Losses
}
