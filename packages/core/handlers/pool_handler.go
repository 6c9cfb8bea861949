package handlers

import (
	"net/http"

	"core/services"

	"github.com/gin-gonic/gin"
)

type PoolHandler struct {
	pool    *services.PoolService
	players *services.PlayerService
}

func NewPoolHandler(pool *services.PoolService, players *services.PlayerService) *PoolHandler {
	return &PoolHandler{
		pool:    pool,
		players: players,
	}
}

type checkInRequest struct {
	Character string `json:"character" binding:"required"`
}

// CheckIn publishes the caller into the pool with their rating for the
// chosen character.
// @Summary Check in to the pool
// @Tags pool
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param check-in body checkInRequest true "Character to queue with"
// @Success 200 {object} services.PoolPlayer
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/pool/check-in [post]
func (h *PoolHandler) CheckIn(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	elo, err := h.players.CharacterElo(username, req.Character)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.pool.CheckIn(c.Request.Context(), username, req.Character, elo); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, services.PoolPlayer{Username: username, Character: req.Character, Elo: elo})
}

// CheckOut removes the caller from the pool
// @Summary Check out of the pool
// @Tags pool
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Router /api/pool/check-out [post]
func (h *PoolHandler) CheckOut(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	if err := h.pool.CheckOut(c.Request.Context(), username); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "checked-out"})
}

// Search finds checked-in players by handle prefix
// @Summary Search the pool
// @Tags pool
// @Security BearerAuth
// @Produce json
// @Param query query string true "Handle prefix"
// @Success 200 {array} services.PoolPlayer
// @Router /api/pool/search [get]
func (h *PoolHandler) Search(c *gin.Context) {
	players, err := h.pool.Search(c.Request.Context(), c.Query("query"))
	if err != nil {
		respondError(c, err)
		return
	}
	if players == nil {
		players = []services.PoolPlayer{}
	}
	c.JSON(http.StatusOK, players)
}

// All lists every checked-in player
// @Summary List the pool
// @Tags pool
// @Security BearerAuth
// @Produce json
// @Success 200 {array} services.PoolPlayer
// @Router /api/pool/all [get]
func (h *PoolHandler) All(c *gin.Context) {
	players, err := h.pool.FindAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if players == nil {
		players = []services.PoolPlayer{}
	}
	c.JSON(http.StatusOK, players)
}

// Flush empties the pool. Admin only.
// @Summary Flush the pool
// @Tags pool
// @Security BearerAuth
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/pool [delete]
func (h *PoolHandler) Flush(c *gin.Context) {
	if err := h.pool.Flush(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "flushed"})
}

// Seed bulk-loads pool entries. Admin only, used by fixtures and demos.
// @Summary Seed the pool
// @Tags pool
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param entries body []services.PoolPlayer true "Entries to load"
// @Success 200 {object} map[string]int
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/pool/seed [post]
func (h *PoolHandler) Seed(c *gin.Context) {
	var entries []services.PoolPlayer
	if err := c.ShouldBindJSON(&entries); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.pool.BulkCheckIn(c.Request.Context(), entries); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"seeded": len(entries)})
}
