package services

import (
	"errors"
	"log"

	"core/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserService resolves ladder handles to account ids for match bookkeeping
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// ResolveUserID returns the account id behind a handle, nil when the handle
// has no ladder row.
func (s *UserService) ResolveUserID(username string) *uuid.UUID {
	var player models.Player
	if err := s.db.First(&player, "LOWER(username) = LOWER(?)", username).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("identity lookup failed for %s: %v", username, err)
		}
		return nil
	}
	id := player.UserID
	return &id
}
