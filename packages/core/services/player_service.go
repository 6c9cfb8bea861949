package services

import (
	"errors"
	"fmt"
	"strings"

	"core/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const profileRecentMatches = 10

// PlayerService owns the ladder rows and the read-side projections built on
// them: leaderboards, character tables and public profiles.
type PlayerService struct {
	db      *gorm.DB
	matches *GormMatchStore
}

func NewPlayerService(db *gorm.DB) *PlayerService {
	return &PlayerService{db: db, matches: NewGormMatchStore(db)}
}

// RegisterPlayer creates the ladder row backing a fresh account. Called by
// the auth module right after the user row is inserted.
func (s *PlayerService) RegisterPlayer(userID uuid.UUID, username string) error {
	player := &models.Player{
		UserID:   userID,
		Username: username,
		Elo:      1200,
		PeakElo:  1200,
	}
	return s.db.Create(player).Error
}

// FindByUsername looks the handle up case-insensitively
func (s *PlayerService) FindByUsername(username string) (*models.Player, error) {
	var player models.Player
	if err := s.db.First(&player, "LOWER(username) = LOWER(?)", username).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: player %s", ErrNotFound, username)
		}
		return nil, err
	}
	return &player, nil
}

// CharacterElo returns the player's rating with the given character. A
// pairing with no rating row yet reads as a fresh 1200.
func (s *PlayerService) CharacterElo(username, character string) (int, error) {
	player, err := s.FindByUsername(username)
	if err != nil {
		return 0, err
	}

	var row models.CharacterStats
	err = s.db.First(&row, "player_id = ? AND character_name = ?", player.ID, character).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 1200, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Elo, nil
}

// GlobalRankings returns the leaderboard by denormalized elo. Players with no
// games yet are left out.
func (s *PlayerService) GlobalRankings(limit int) ([]models.RankingEntry, error) {
	var players []models.Player
	err := s.db.
		Where("wins + losses > 0").
		Order("elo DESC, username ASC").
		Limit(limit).
		Find(&players).Error
	if err != nil {
		return nil, err
	}

	entries := make([]models.RankingEntry, 0, len(players))
	for i, player := range players {
		entries = append(entries, models.RankingEntry{
			Rank:     i + 1,
			Username: player.Username,
			Elo:      player.Elo,
			PeakElo:  player.PeakElo,
			Wins:     player.Wins,
			Losses:   player.Losses,
			Games:    player.TotalGames(),
		})
	}
	return entries, nil
}

// CharacterRankings returns the per-character leaderboard
func (s *PlayerService) CharacterRankings(character string, limit int) ([]models.CharacterRankingEntry, error) {
	var rows []struct {
		Username string
		Elo      int
		PeakElo  int
		Wins     int
		Losses   int
	}
	err := s.db.Model(&models.CharacterStats{}).
		Select("players.username, player_character_stats.elo, player_character_stats.peak_elo, player_character_stats.wins, player_character_stats.losses").
		Joins("JOIN players ON players.id = player_character_stats.player_id").
		Where("player_character_stats.character_name = ?", character).
		Where("player_character_stats.wins + player_character_stats.losses > 0").
		Order("player_character_stats.elo DESC, players.username ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	entries := make([]models.CharacterRankingEntry, 0, len(rows))
	for i, row := range rows {
		entries = append(entries, models.CharacterRankingEntry{
			Rank:     i + 1,
			Username: row.Username,
			Elo:      row.Elo,
			PeakElo:  row.PeakElo,
			Wins:     row.Wins,
			Losses:   row.Losses,
			Games:    row.Wins + row.Losses,
		})
	}
	return entries, nil
}

// Characters lists every character with at least one rating row, most played
// first.
func (s *PlayerService) Characters() ([]models.CharacterSummary, error) {
	var rows []models.CharacterSummary
	err := s.db.Model(&models.CharacterStats{}).
		Select("character_name, COUNT(*) AS players").
		Group("character_name").
		Order("players DESC, character_name ASC").
		Scan(&rows).Error
	return rows, err
}

// Profile assembles the public view of one player: the aggregate line, the
// per-character breakdown (main = most played) and recent completed sets.
func (s *PlayerService) Profile(username string) (*models.Profile, error) {
	player, err := s.FindByUsername(username)
	if err != nil {
		return nil, err
	}

	var stats []models.CharacterStats
	err = s.db.
		Where("player_id = ?", player.ID).
		Order("wins + losses DESC, elo DESC").
		Find(&stats).Error
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{
		Username:      player.Username,
		Elo:           player.Elo,
		PeakElo:       player.PeakElo,
		Wins:          player.Wins,
		Losses:        player.Losses,
		Games:         player.TotalGames(),
		Characters:    make([]models.CharacterBreakdown, 0, len(stats)),
		RecentMatches: []models.MatchSummary{},
	}

	if player.TotalGames() > 0 {
		rank, err := s.globalRank(player)
		if err != nil {
			return nil, err
		}
		profile.GlobalRank = rank
	}

	for _, row := range stats {
		breakdown := models.CharacterBreakdown{
			Character: row.CharacterName,
			Elo:       row.Elo,
			PeakElo:   row.PeakElo,
			Wins:      row.Wins,
			Losses:    row.Losses,
			Games:     row.TotalGames(),
		}
		if row.TotalGames() > 0 {
			rank, err := s.characterRank(row.CharacterName, row.Elo)
			if err != nil {
				return nil, err
			}
			breakdown.Rank = rank
			if profile.MainCharacter == "" {
				profile.MainCharacter = row.CharacterName
			}
		}
		profile.Characters = append(profile.Characters, breakdown)
	}

	recent, err := s.matches.RecentCompletedByParticipant(player.Username, profileRecentMatches)
	if err != nil {
		return nil, err
	}
	for _, match := range recent {
		profile.RecentMatches = append(profile.RecentMatches, summarizeMatch(&match, player.Username))
	}

	return profile, nil
}

// GetStats returns the ladder-wide overview counters
func (s *PlayerService) GetStats() (*models.LadderStats, error) {
	var stats models.LadderStats

	if err := s.db.Model(&models.Player{}).Count(&stats.TotalPlayers).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Player{}).
		Where("wins + losses > 0").
		Count(&stats.ActivePlayers).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Match{}).
		Where("status = ?", models.MatchStatusCompleted).
		Count(&stats.TotalMatches).Error; err != nil {
		return nil, err
	}
	if err := s.db.Model(&models.Match{}).
		Where("status = ? AND played_at >= NOW() - INTERVAL '7 days'", models.MatchStatusCompleted).
		Count(&stats.MatchesLast7Days).Error; err != nil {
		return nil, err
	}

	return &stats, nil
}

// globalRank is 1 + the number of active players strictly above, ties broken
// alphabetically the same way GlobalRankings orders them.
func (s *PlayerService) globalRank(player *models.Player) (int, error) {
	var above int64
	err := s.db.Model(&models.Player{}).
		Where("wins + losses > 0").
		Where("elo > ? OR (elo = ? AND username < ?)", player.Elo, player.Elo, player.Username).
		Count(&above).Error
	return int(above) + 1, err
}

func (s *PlayerService) characterRank(character string, elo int) (int, error) {
	var above int64
	err := s.db.Model(&models.CharacterStats{}).
		Where("character_name = ? AND wins + losses > 0 AND elo > ?", character, elo).
		Count(&above).Error
	return int(above) + 1, err
}

func summarizeMatch(match *models.Match, username string) models.MatchSummary {
	summary := models.MatchSummary{
		MatchID:  match.ID.String(),
		Opponent: match.Opponent(username),
		PlayedAt: match.PlayedAt,
		Result:   models.MatchResultLoss,
	}

	if strings.EqualFold(match.Player1Username, username) {
		summary.PlayerCharacter = match.Player1Character
		summary.OpponentCharacter = match.Player2Character
		summary.EloDelta = deltaOf(match.Player1EloBefore, match.Player1EloAfter)
		summary.EloAfter = match.Player1EloAfter
	} else {
		summary.PlayerCharacter = match.Player2Character
		summary.OpponentCharacter = match.Player1Character
		summary.EloDelta = deltaOf(match.Player2EloBefore, match.Player2EloAfter)
		summary.EloAfter = match.Player2EloAfter
	}

	if match.WinnerUsername != nil && strings.EqualFold(*match.WinnerUsername, username) {
		summary.Result = models.MatchResultWin
	}
	return summary
}

func deltaOf(before, after *int) *int {
	if before == nil || after == nil {
		return nil
	}
	delta := *after - *before
	return &delta
}
