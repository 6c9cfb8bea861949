package fixtures

import (
	"context"
	"fmt"
	"log"

	authModels "auth/models"
	authUtils "auth/utils"
	"core/models"
	"core/services"

	"gorm.io/gorm"
)

// Fixtures seeds the development accounts and a small pool so the client has
// something to browse right after a reset. Seeding is idempotent.
type Fixtures struct {
	db   *gorm.DB
	pool *services.PoolService
}

func NewFixtures(db *gorm.DB, pool *services.PoolService) *Fixtures {
	return &Fixtures{db: db, pool: pool}
}

const devPassword = "password123"

var devAccounts = []struct {
	Username  string
	Character string
}{
	{"mew2king", "Marth"},
	{"mang0", "Falco"},
	{"zain", "Marth"},
	{"ibdw", "Sheik"},
}

// Seed creates the dev users and their ladder rows, skipping any that exist
func (f *Fixtures) Seed() error {
	log.Println("Seeding development accounts...")

	for _, account := range devAccounts {
		created, err := f.seedAccount(account.Username)
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", account.Username, err)
		}
		if created {
			log.Printf("Seeded account %s", account.Username)
		}
	}
	return nil
}

func (f *Fixtures) seedAccount(username string) (bool, error) {
	var count int64
	if err := f.db.Model(&authModels.User{}).
		Where("LOWER(username) = LOWER(?)", username).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := authUtils.HashPassword(devPassword)
	if err != nil {
		return false, err
	}

	user := authModels.User{
		Username: username,
		Password: hash,
		Roles:    authModels.Roles{authModels.RoleUser},
	}
	if err := f.db.Create(&user).Error; err != nil {
		return false, err
	}

	player := models.Player{
		UserID:   user.ID,
		Username: username,
		Elo:      1200,
		PeakElo:  1200,
	}
	return true, f.db.Create(&player).Error
}

// SeedPool checks every dev account into the pool with its preferred
// character.
func (f *Fixtures) SeedPool(ctx context.Context) error {
	log.Println("Seeding the pool...")

	entries := make([]services.PoolPlayer, 0, len(devAccounts))
	for _, account := range devAccounts {
		var player models.Player
		if err := f.db.First(&player, "LOWER(username) = LOWER(?)", account.Username).Error; err != nil {
			return fmt.Errorf("player %s missing, run seed first: %w", account.Username, err)
		}
		entries = append(entries, services.PoolPlayer{
			Username:  player.Username,
			Character: account.Character,
			Elo:       player.Elo,
		})
	}
	return f.pool.BulkCheckIn(ctx, entries)
}

// ClearAllData wipes every table and the pool. Development only.
func (f *Fixtures) ClearAllData(ctx context.Context) error {
	log.Println("Clearing all data...")

	tables := []string{
		"matches",
		"player_character_stats",
		"players",
		"refresh_tokens",
		"users",
	}
	for _, table := range tables {
		if err := f.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return f.pool.Flush(ctx)
}
