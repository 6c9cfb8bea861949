package handlers

import (
	"net/http"
	"strconv"

	"core/services"

	"github.com/gin-gonic/gin"
)

const (
	defaultRankingsLimit = 50
	maxRankingsLimit     = 100
)

type RankingsHandler struct {
	players *services.PlayerService
}

func NewRankingsHandler(players *services.PlayerService) *RankingsHandler {
	return &RankingsHandler{players: players}
}

func rankingsLimit(c *gin.Context) (int, bool) {
	limitStr := c.DefaultQuery("limit", strconv.Itoa(defaultRankingsLimit))
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
		return 0, false
	}
	if limit > maxRankingsLimit {
		limit = maxRankingsLimit
	}
	return limit, true
}

// Global returns the ladder ordered by elo
// @Summary Get global rankings
// @Description Players with at least one game, ordered by their best character rating
// @Tags rankings
// @Produce json
// @Param limit query int false "Rows to return (default: 50, max: 100)"
// @Success 200 {array} models.RankingEntry
// @Failure 400 {object} map[string]string
// @Router /api/rankings [get]
func (h *RankingsHandler) Global(c *gin.Context) {
	limit, ok := rankingsLimit(c)
	if !ok {
		return
	}

	entries, err := h.players.GlobalRankings(limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Character returns one character's ladder
// @Summary Get character rankings
// @Tags rankings
// @Produce json
// @Param name path string true "Character name"
// @Param limit query int false "Rows to return (default: 50, max: 100)"
// @Success 200 {array} models.CharacterRankingEntry
// @Failure 400 {object} map[string]string
// @Router /api/rankings/character/{name} [get]
func (h *RankingsHandler) Character(c *gin.Context) {
	limit, ok := rankingsLimit(c)
	if !ok {
		return
	}

	entries, err := h.players.CharacterRankings(c.Param("name"), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// Characters lists every character with rated players
// @Summary List ranked characters
// @Tags rankings
// @Produce json
// @Success 200 {array} models.CharacterSummary
// @Router /api/rankings/characters [get]
func (h *RankingsHandler) Characters(c *gin.Context) {
	characters, err := h.players.Characters()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, characters)
}

// Profile returns the public view of one player
// @Summary Get a player profile
// @Description Aggregate line, per-character breakdown and recent completed sets
// @Tags rankings
// @Produce json
// @Param username path string true "Player handle"
// @Success 200 {object} models.Profile
// @Failure 404 {object} map[string]string
// @Router /api/profile/{username} [get]
func (h *RankingsHandler) Profile(c *gin.Context) {
	profile, err := h.players.Profile(c.Param("username"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Stats returns the ladder-wide overview counters
// @Summary Get ladder stats
// @Tags rankings
// @Produce json
// @Success 200 {object} models.LadderStats
// @Router /api/stats [get]
func (h *RankingsHandler) Stats(c *gin.Context) {
	stats, err := h.players.GetStats()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
