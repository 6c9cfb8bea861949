package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"core/models"
	"core/utils"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ParticipantResult is one side of a finalized match
type ParticipantResult struct {
	Username  string `json:"username"`
	Character string `json:"character"`
	EloBefore int    `json:"elo_before"`
	EloAfter  int    `json:"elo_after"`
	Delta     int    `json:"delta"`
}

// MatchResult is returned by ProcessMatchResult, sides in match order
type MatchResult struct {
	Player1 ParticipantResult `json:"player1"`
	Player2 ParticipantResult `json:"player2"`
}

// EloService applies a confirmed match outcome to both per-character rating
// rows and the denormalized player aggregates, all under one transaction.
type EloService struct {
	db            *gorm.DB
	lockTimeoutMS int
}

func NewEloService(db *gorm.DB, lockTimeoutMS int) *EloService {
	return &EloService{
		db:            db,
		lockTimeoutMS: lockTimeoutMS,
	}
}

// ProcessMatchResult finalizes a match whose status and winner have already
// been decided. Both rating rows are locked FOR UPDATE in ascending row-id
// order so concurrent finalizations touching the same rows cannot deadlock.
// The match row is persisted in the same transaction as the rating rows; a
// lock timeout rolls everything back and surfaces ErrResourceBusy.
func (s *EloService) ProcessMatchResult(match *models.Match) (*MatchResult, error) {
	if match.WinnerUsername == nil {
		return nil, fmt.Errorf("%w: match has no winner", ErrValidation)
	}

	tx := s.db.Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeoutMS)).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	var player1, player2 models.Player
	if err := tx.Where("LOWER(username) = ?", strings.ToLower(match.Player1Username)).First(&player1).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, match.Player1Username)
	}
	if err := tx.Where("LOWER(username) = ?", strings.ToLower(match.Player2Username)).First(&player2).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%w: player %s", ErrNotFound, match.Player2Username)
	}

	stats1, err := getOrCreateCharacterStats(tx, player1.ID, match.Player1Character)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	stats2, err := getOrCreateCharacterStats(tx, player2.ID, match.Player2Character)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	// Single place that decides multi-row lock order: ascending row id.
	rows := []*models.CharacterStats{stats1, stats2}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	for _, row := range rows {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(row, row.ID).Error; err != nil {
			tx.Rollback()
			if isLockTimeout(err) {
				return nil, ErrResourceBusy
			}
			return nil, err
		}
	}

	player1Won := strings.EqualFold(*match.WinnerUsername, match.Player1Username)

	// Pre-images, read from the locked rows.
	before1, before2 := stats1.Elo, stats2.Elo
	games1, games2 := stats1.TotalGames(), stats2.TotalGames()
	k1, k2 := utils.KFactor(games1), utils.KFactor(games2)

	after1 := utils.CalculateNewRating(before1, before2, games1, player1Won)
	after2 := utils.CalculateNewRating(before2, before1, games2, !player1Won)

	applyGame(stats1, after1, player1Won)
	applyGame(stats2, after2, !player1Won)

	if err := tx.Save(stats1).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Save(stats2).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := syncPlayerAggregate(tx, &player1, player1Won); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := syncPlayerAggregate(tx, &player2, !player1Won); err != nil {
		tx.Rollback()
		return nil, err
	}

	match.Player1EloBefore, match.Player1EloAfter, match.Player1KFactor = &before1, &after1, &k1
	match.Player2EloBefore, match.Player2EloAfter, match.Player2KFactor = &before2, &after2, &k2
	if player1Won {
		match.WinnerID = match.Player1ID
	} else {
		match.WinnerID = match.Player2ID
	}

	if err := tx.Save(match).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		if isLockTimeout(err) {
			return nil, ErrResourceBusy
		}
		return nil, err
	}

	return &MatchResult{
		Player1: ParticipantResult{
			Username:  match.Player1Username,
			Character: match.Player1Character,
			EloBefore: before1,
			EloAfter:  after1,
			Delta:     after1 - before1,
		},
		Player2: ParticipantResult{
			Username:  match.Player2Username,
			Character: match.Player2Character,
			EloBefore: before2,
			EloAfter:  after2,
			Delta:     after2 - before2,
		},
	}, nil
}

// getOrCreateCharacterStats returns the (player, character) row, creating a
// fresh 1200/1200 row when the player has never played the character. The
// fresh row ignores the player's other characters on purpose: each character
// is its own skill pool.
func getOrCreateCharacterStats(tx *gorm.DB, playerID uint, character string) (*models.CharacterStats, error) {
	var stats models.CharacterStats
	err := tx.Where("player_id = ? AND character_name = ?", playerID, character).First(&stats).Error
	if err == nil {
		return &stats, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	stats = models.CharacterStats{
		PlayerID:      playerID,
		CharacterName: character,
		Elo:           1200,
		PeakElo:       1200,
	}
	if err := tx.Create(&stats).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

func applyGame(stats *models.CharacterStats, newElo int, won bool) {
	if won {
		stats.Wins++
	} else {
		stats.Losses++
	}
	stats.Elo = newElo
	if newElo > stats.PeakElo {
		stats.PeakElo = newElo
	}
}

// syncPlayerAggregate re-derives the denormalized player rating from the
// character rows inside the same transaction, so it observes the values
// written just above.
func syncPlayerAggregate(tx *gorm.DB, player *models.Player, won bool) error {
	var maxElo int
	if err := tx.Model(&models.CharacterStats{}).
		Where("player_id = ?", player.ID).
		Select("MAX(elo)").
		Scan(&maxElo).Error; err != nil {
		return err
	}

	player.Elo = maxElo
	if maxElo > player.PeakElo {
		player.PeakElo = maxElo
	}
	if won {
		player.Wins++
	} else {
		player.Losses++
	}

	return tx.Save(player).Error
}

func isLockTimeout(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "55P03"
}
