package services

import (
	"errors"
	"fmt"

	"core/models"

	"gorm.io/gorm"
)

// GormMatchStore is the durable MatchStore backed by the matches table
type GormMatchStore struct {
	db *gorm.DB
}

func NewGormMatchStore(db *gorm.DB) *GormMatchStore {
	return &GormMatchStore{db: db}
}

func (s *GormMatchStore) Insert(match *models.Match) error {
	return s.db.Create(match).Error
}

func (s *GormMatchStore) FindByID(id string) (*models.Match, error) {
	var match models.Match
	if err := s.db.First(&match, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: match %s", ErrNotFound, id)
		}
		return nil, err
	}
	return &match, nil
}

func (s *GormMatchStore) Update(match *models.Match) error {
	return s.db.Save(match).Error
}

// RecentByParticipant returns the newest matches either side of which the
// player took part in.
func (s *GormMatchStore) RecentByParticipant(username string, limit int) ([]models.Match, error) {
	var matches []models.Match
	err := s.db.
		Where("LOWER(player1_username) = LOWER(?) OR LOWER(player2_username) = LOWER(?)", username, username).
		Order("played_at DESC").
		Limit(limit).
		Find(&matches).Error
	return matches, err
}

// RecentCompletedByParticipant narrows RecentByParticipant to finished sets,
// the ones whose audit columns are populated.
func (s *GormMatchStore) RecentCompletedByParticipant(username string, limit int) ([]models.Match, error) {
	var matches []models.Match
	err := s.db.
		Where("LOWER(player1_username) = LOWER(?) OR LOWER(player2_username) = LOWER(?)", username, username).
		Where("status = ?", models.MatchStatusCompleted).
		Order("played_at DESC").
		Limit(limit).
		Find(&matches).Error
	return matches, err
}

// RecentByParticipantAndCharacter narrows RecentByParticipant to matches the
// player played with the given character.
func (s *GormMatchStore) RecentByParticipantAndCharacter(username, character string, limit int) ([]models.Match, error) {
	var matches []models.Match
	err := s.db.
		Where("(LOWER(player1_username) = LOWER(?) AND player1_character = ?) OR (LOWER(player2_username) = LOWER(?) AND player2_character = ?)",
			username, character, username, character).
		Order("played_at DESC").
		Limit(limit).
		Find(&matches).Error
	return matches, err
}

// CountByParticipant counts matches the player took part in, optionally
// filtered by status ("" counts everything).
func (s *GormMatchStore) CountByParticipant(username, status string) (int64, error) {
	query := s.db.Model(&models.Match{}).
		Where("LOWER(player1_username) = LOWER(?) OR LOWER(player2_username) = LOWER(?)", username, username)
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var count int64
	err := query.Count(&count).Error
	return count, err
}
