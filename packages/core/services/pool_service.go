package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// Pool index keys. The search index is a lexicographic sorted set (every
// score is 0) so prefix queries sort A-Z; the expiry index scores each entry
// with its check-in timestamp so the janitor can find stale ones.
const (
	poolSearchKey = "smashrank:pool:search"
	poolExpiryKey = "smashrank:pool:expiry"

	poolEntryTTL     = 15 * time.Minute
	poolSearchLimit  = 20
	poolFindAllLimit = 100
)

// PoolPlayer is one checked-in entry
type PoolPlayer struct {
	Username  string `json:"username"`
	Character string `json:"character"`
	Elo       int    `json:"elo"`
}

// PoolService keeps the live pool in two Valkey sorted sets. Entries are
// "lower:Original:Character:Elo" so the lowercase prefix drives both prefix
// search and per-user lookup while the display name survives round trips.
type PoolService struct {
	client valkey.Client
}

func NewPoolService(client valkey.Client) *PoolService {
	return &PoolService{client: client}
}

// DialPool connects to the Valkey instance named by url
// (e.g. redis://localhost:6379).
func DialPool(url string) (valkey.Client, error) {
	option, err := valkey.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse pool url: %w", err)
	}
	client, err := valkey.NewClient(option)
	if err != nil {
		return nil, fmt.Errorf("connect to pool: %w", err)
	}
	return client, nil
}

// CheckIn publishes the player into the pool, replacing any earlier entry
// (the elo may have moved since).
func (s *PoolService) CheckIn(ctx context.Context, username, character string, elo int) error {
	if err := s.removeEntry(ctx, username); err != nil {
		return err
	}

	value := formatPoolValue(username, character, elo)
	now := float64(time.Now().UnixMilli())

	results := s.client.DoMulti(ctx,
		s.client.B().Zadd().Key(poolSearchKey).ScoreMember().ScoreMember(0, value).Build(),
		s.client.B().Zadd().Key(poolExpiryKey).ScoreMember().ScoreMember(now, value).Build(),
	)
	for _, result := range results {
		if err := result.Error(); err != nil {
			return err
		}
	}
	return nil
}

// CheckOut removes the player's entry from both indices
func (s *PoolService) CheckOut(ctx context.Context, username string) error {
	return s.removeEntry(ctx, username)
}

// Search returns up to 20 entries whose lowercase handle starts with query
func (s *PoolService) Search(ctx context.Context, query string) ([]PoolPlayer, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}

	// "{" is the first byte after "z", closing the prefix range.
	cmd := s.client.B().Zrangebylex().Key(poolSearchKey).
		Min("[" + query).Max("(" + query + "{").
		Limit(0, poolSearchLimit).Build()
	values, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, err
	}
	return parsePoolValues(values), nil
}

// FindAll returns up to 100 entries in handle order
func (s *PoolService) FindAll(ctx context.Context) ([]PoolPlayer, error) {
	cmd := s.client.B().Zrangebylex().Key(poolSearchKey).
		Min("-").Max("+").
		Limit(0, poolFindAllLimit).Build()
	values, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return nil, err
	}
	return parsePoolValues(values), nil
}

// GetCheckedInPlayer returns the player's pool entry, nil when absent
func (s *PoolService) GetCheckedInPlayer(ctx context.Context, username string) (*PoolPlayer, error) {
	value, err := s.findEntry(ctx, username)
	if err != nil || value == "" {
		return nil, err
	}
	player := parsePoolValue(value)
	return &player, nil
}

// CheckedInCharacter satisfies the match coordinator's character source;
// "" means not checked in.
func (s *PoolService) CheckedInCharacter(username string) string {
	player, err := s.GetCheckedInPlayer(context.Background(), username)
	if err != nil {
		log.Printf("pool lookup failed for %s: %v", username, err)
		return ""
	}
	if player == nil {
		return ""
	}
	return player.Character
}

// Flush empties the pool entirely
func (s *PoolService) Flush(ctx context.Context) error {
	results := s.client.DoMulti(ctx,
		s.client.B().Del().Key(poolSearchKey).Build(),
		s.client.B().Del().Key(poolExpiryKey).Build(),
	)
	for _, result := range results {
		if err := result.Error(); err != nil {
			return err
		}
	}
	return nil
}

// BulkCheckIn seeds many entries in one round trip
func (s *PoolService) BulkCheckIn(ctx context.Context, players []PoolPlayer) error {
	if len(players) == 0 {
		return nil
	}

	now := float64(time.Now().UnixMilli())
	cmds := make(valkey.Commands, 0, len(players)*2)
	for _, player := range players {
		value := formatPoolValue(player.Username, player.Character, player.Elo)
		cmds = append(cmds,
			s.client.B().Zadd().Key(poolSearchKey).ScoreMember().ScoreMember(0, value).Build(),
			s.client.B().Zadd().Key(poolExpiryKey).ScoreMember().ScoreMember(now, value).Build(),
		)
	}

	for _, result := range s.client.DoMulti(ctx, cmds...) {
		if err := result.Error(); err != nil {
			return err
		}
	}
	return nil
}

// CleanupInactive removes entries older than the pool TTL from both indices
// and returns how many were swept. Called every minute by the scheduler.
func (s *PoolService) CleanupInactive(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-poolEntryTTL).UnixMilli()

	cmd := s.client.B().Zrangebyscore().Key(poolExpiryKey).
		Min("0").Max(strconv.FormatInt(cutoff, 10)).Build()
	stale, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	results := s.client.DoMulti(ctx,
		s.client.B().Zrem().Key(poolSearchKey).Member(stale...).Build(),
		s.client.B().Zrem().Key(poolExpiryKey).Member(stale...).Build(),
	)
	for _, result := range results {
		if err := result.Error(); err != nil {
			return 0, err
		}
	}
	return len(stale), nil
}

// findEntry returns the raw member for the handle, "" when absent. The range
// "[user:" .. "(user;" works because ";" is the byte after ":".
func (s *PoolService) findEntry(ctx context.Context, username string) (string, error) {
	lower := strings.ToLower(username)
	cmd := s.client.B().Zrangebylex().Key(poolSearchKey).
		Min("[" + lower + ":").Max("(" + lower + ";").
		Limit(0, 1).Build()
	values, err := s.client.Do(ctx, cmd).AsStrSlice()
	if err != nil {
		return "", err
	}
	if len(values) == 0 {
		return "", nil
	}
	return values[0], nil
}

func (s *PoolService) removeEntry(ctx context.Context, username string) error {
	value, err := s.findEntry(ctx, username)
	if err != nil || value == "" {
		return err
	}

	results := s.client.DoMulti(ctx,
		s.client.B().Zrem().Key(poolSearchKey).Member(value).Build(),
		s.client.B().Zrem().Key(poolExpiryKey).Member(value).Build(),
	)
	for _, result := range results {
		if err := result.Error(); err != nil {
			return err
		}
	}
	return nil
}

func formatPoolValue(username, character string, elo int) string {
	return strings.ToLower(username) + ":" + username + ":" + character + ":" + strconv.Itoa(elo)
}

func parsePoolValue(value string) PoolPlayer {
	parts := strings.Split(value, ":")
	if len(parts) < 4 {
		return PoolPlayer{Username: "Unknown", Character: "Unknown", Elo: 1000}
	}
	elo, err := strconv.Atoi(parts[3])
	if err != nil {
		elo = 1000
	}
	return PoolPlayer{Username: parts[1], Character: parts[2], Elo: elo}
}

func parsePoolValues(values []string) []PoolPlayer {
	players := make([]PoolPlayer, 0, len(values))
	for _, value := range values {
		players = append(players, parsePoolValue(value))
	}
	return players
}
