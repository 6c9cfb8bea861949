package handlers

import (
	"errors"
	"net/http"
	"strings"

	"core/models"
	"core/services"

	authMiddleware "auth/middleware"

	"github.com/gin-gonic/gin"
)

type MatchHandler struct {
	matches *services.MatchService
	store   *services.GormMatchStore
}

func NewMatchHandler(matches *services.MatchService, store *services.GormMatchStore) *MatchHandler {
	return &MatchHandler{
		matches: matches,
		store:   store,
	}
}

// respondError maps service sentinels onto HTTP statuses. Shared by every
// handler in this package.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrBusy), errors.Is(err, services.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrResourceBusy):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Ratings are busy, retry the confirmation"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func caller(c *gin.Context) (string, bool) {
	username, ok := authMiddleware.GetUsername(c)
	if !ok || username == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return "", false
	}
	return username, true
}

// Invite opens a challenge against another player
// @Summary Invite an opponent
// @Description Lock both players into a pending invite and notify the opponent
// @Tags matches
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param invite body models.InviteRequest true "Opponent handle"
// @Success 201 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/matches/invite [post]
func (h *MatchHandler) Invite(c *gin.Context) {
	challenger, ok := caller(c)
	if !ok {
		return
	}

	var req models.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	inviteID, err := h.matches.Invite(challenger, req.Opponent)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"inviteId": inviteID})
}

// Accept turns a pending invite into an active match
// @Summary Accept an invite
// @Tags matches
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param invite body models.InviteActionRequest true "Invite to accept"
// @Success 201 {object} models.Match
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/matches/accept [post]
func (h *MatchHandler) Accept(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var req models.InviteActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if !strings.EqualFold(username, req.Opponent) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the invited player can accept"})
		return
	}

	match, err := h.matches.Accept(req.InviteID, req.Challenger, req.Opponent)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, match)
}

// Decline refuses a pending invite and frees both players
// @Summary Decline an invite
// @Tags matches
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param invite body models.InviteActionRequest true "Invite to decline"
// @Success 200 {object} map[string]string
// @Router /api/matches/decline [post]
func (h *MatchHandler) Decline(c *gin.Context) {
	if _, ok := caller(c); !ok {
		return
	}

	var req models.InviteActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	h.matches.Decline(req.InviteID, req.Challenger, req.Opponent)
	c.JSON(http.StatusOK, gin.H{"status": "declined"})
}

// Cancel withdraws an invite the caller sent
// @Summary Cancel an invite
// @Tags matches
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param invite body models.InviteActionRequest true "Invite to cancel"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/matches/cancel [post]
func (h *MatchHandler) Cancel(c *gin.Context) {
	username, ok := caller(c)
	if !ok {
		return
	}

	var req models.InviteActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if !strings.EqualFold(username, req.Challenger) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the challenger can cancel"})
		return
	}

	if err := h.matches.Cancel(req.InviteID, req.Challenger, req.Opponent); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// Report files the first result claim for an active match
// @Summary Report a result
// @Tags matches
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param report body models.ReportRequest true "Claimed winner"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/matches/report [post]
func (h *MatchHandler) Report(c *gin.Context) {
	reporter, ok := caller(c)
	if !ok {
		return
	}

	var req models.ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.matches.Report(req.MatchID, reporter, req.Winner); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "awaiting-confirmation"})
}

// Confirm files the second claim; agreement rates the match, disagreement
// disputes it.
// @Summary Confirm a result
// @Tags matches
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param confirm body models.ConfirmRequest true "Claimed winner"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/matches/confirm [post]
func (h *MatchHandler) Confirm(c *gin.Context) {
	confirmer, ok := caller(c)
	if !ok {
		return
	}

	var req models.ConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	status, err := h.matches.Confirm(req.MatchID, confirmer, req.Winner)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"matchId": req.MatchID, "status": status})
}

// Rematch answers the rematch offered after a confirmed result
// @Summary Accept or decline a rematch
// @Tags matches
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param rematch body models.RematchRequest true "Rematch answer"
// @Success 200 {object} models.Match
// @Failure 403 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/matches/rematch [post]
func (h *MatchHandler) Rematch(c *gin.Context) {
	responder, ok := caller(c)
	if !ok {
		return
	}

	var req models.RematchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	match, err := h.matches.Rematch(req.MatchID, responder, *req.Accept)
	if err != nil {
		respondError(c, err)
		return
	}
	if match == nil {
		if *req.Accept {
			c.JSON(http.StatusOK, gin.H{"status": "waiting"})
		} else {
			c.JSON(http.StatusOK, gin.H{"status": "declined"})
		}
		return
	}

	c.JSON(http.StatusOK, match)
}

// GetMatch returns one match by id
// @Summary Get a match
// @Tags matches
// @Security BearerAuth
// @Produce json
// @Param id path string true "Match ID"
// @Success 200 {object} models.Match
// @Failure 404 {object} map[string]string
// @Router /api/matches/{id} [get]
func (h *MatchHandler) GetMatch(c *gin.Context) {
	match, err := h.store.FindByID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, match)
}
