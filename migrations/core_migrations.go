package migrations

import "gorm.io/gorm"

func GetCoreMigrations() []MigrationDefinition {
	return []MigrationDefinition{
		{
			Name: "2025_01_03_000000_create_players_table",
			Up: func(db *gorm.DB) error {
				return db.Exec(`
					CREATE TABLE IF NOT EXISTS players (
						id SERIAL PRIMARY KEY,
						user_id UUID UNIQUE NOT NULL REFERENCES users(id) ON DELETE CASCADE,
						username VARCHAR(20) UNIQUE NOT NULL,
						elo INT DEFAULT 1200,
						peak_elo INT DEFAULT 1200,
						wins INT DEFAULT 0,
						losses INT DEFAULT 0,
						created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
						updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
					);
					CREATE INDEX IF NOT EXISTS idx_players_elo ON players(elo);
					CREATE UNIQUE INDEX IF NOT EXISTS idx_players_username_lower ON players(LOWER(username));
				`).Error
			},
			Down: func(db *gorm.DB) error {
				return db.Exec("DROP TABLE IF EXISTS players CASCADE").Error
			},
		},
		{
			Name: "2025_01_04_000000_create_player_character_stats_table",
			Up: func(db *gorm.DB) error {
				return db.Exec(`
					CREATE TABLE IF NOT EXISTS player_character_stats (
						id SERIAL PRIMARY KEY,
						player_id INT NOT NULL REFERENCES players(id) ON DELETE CASCADE,
						character_name VARCHAR(64) NOT NULL,
						elo INT DEFAULT 1200,
						peak_elo INT DEFAULT 1200,
						wins INT DEFAULT 0,
						losses INT DEFAULT 0,
						created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
						updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
						CONSTRAINT idx_player_character UNIQUE (player_id, character_name)
					);
					CREATE INDEX IF NOT EXISTS idx_character_stats_character_elo ON player_character_stats(character_name, elo);
				`).Error
			},
			Down: func(db *gorm.DB) error {
				return db.Exec("DROP TABLE IF EXISTS player_character_stats CASCADE").Error
			},
		},
		{
			Name: "2025_01_05_000000_create_matches_table",
			Up: func(db *gorm.DB) error {
				return db.Exec(`
					CREATE TABLE IF NOT EXISTS matches (
						id UUID PRIMARY KEY,
						player1_username VARCHAR(20) NOT NULL,
						player2_username VARCHAR(20) NOT NULL,
						winner_username VARCHAR(20) NULL,
						player1_id UUID NULL,
						player2_id UUID NULL,
						winner_id UUID NULL,
						player1_character VARCHAR(64) NOT NULL,
						player2_character VARCHAR(64) NOT NULL,
						status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
						played_at TIMESTAMP NOT NULL,
						player1_elo_before INT NULL,
						player1_elo_after INT NULL,
						player1_k_factor INT NULL,
						player2_elo_before INT NULL,
						player2_elo_after INT NULL,
						player2_k_factor INT NULL,
						created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
						updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
					);
					CREATE INDEX IF NOT EXISTS idx_matches_player1_username ON matches(player1_username);
					CREATE INDEX IF NOT EXISTS idx_matches_player2_username ON matches(player2_username);
					CREATE INDEX IF NOT EXISTS idx_matches_status ON matches(status);
					CREATE INDEX IF NOT EXISTS idx_matches_played_at ON matches(played_at);
				`).Error
			},
			Down: func(db *gorm.DB) error {
				return db.Exec("DROP TABLE IF EXISTS matches CASCADE").Error
			},
		},
	}
}
