package utils

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"time"

	"auth/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultRefreshTokenExpirationDays = 30

// RefreshTokenExpiry returns the configured refresh token lifetime
func RefreshTokenExpiry() time.Duration {
	days := defaultRefreshTokenExpirationDays
	if raw := os.Getenv("JWT_REFRESH_TOKEN_EXPIRATION_DAYS"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			days = parsed
		}
	}
	return time.Duration(days) * 24 * time.Hour
}

// GenerateTokenPair issues an access token and a fresh refresh token.
// All previous refresh tokens for the user are revoked.
func GenerateTokenPair(db *gorm.DB, user models.User) (*models.TokenResponse, error) {
	accessToken, err := GenerateToken(user)
	if err != nil {
		return nil, err
	}

	refreshTokenString, err := generateSecureToken()
	if err != nil {
		return nil, err
	}

	if err := RevokeAllUserTokens(db, user.ID); err != nil {
		return nil, err
	}

	refreshToken := models.RefreshToken{
		UserID:    user.ID,
		Token:     refreshTokenString,
		ExpiresAt: time.Now().Add(RefreshTokenExpiry()),
	}

	if err := db.Create(&refreshToken).Error; err != nil {
		return nil, err
	}

	return &models.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshTokenString,
		ExpiresIn:    int64(AccessTokenExpiration().Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// RefreshAccessToken redeems a refresh token for a new token pair.
// The presented token is revoked and replaced (rotation on every use).
func RefreshAccessToken(db *gorm.DB, refreshTokenString string) (*models.TokenResponse, error) {
	var refreshToken models.RefreshToken
	if err := db.Preload("User").Where("token = ?", refreshTokenString).First(&refreshToken).Error; err != nil {
		return nil, err
	}

	if !refreshToken.IsValid() {
		db.Delete(&refreshToken)
		return nil, gorm.ErrRecordNotFound
	}

	accessToken, err := GenerateToken(refreshToken.User)
	if err != nil {
		return nil, err
	}

	newRefreshTokenString, err := generateSecureToken()
	if err != nil {
		return nil, err
	}

	refreshToken.Token = newRefreshTokenString
	refreshToken.ExpiresAt = time.Now().Add(RefreshTokenExpiry())
	if err := db.Save(&refreshToken).Error; err != nil {
		return nil, err
	}

	return &models.TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshTokenString,
		ExpiresIn:    int64(AccessTokenExpiration().Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// RevokeRefreshToken revokes a single refresh token
func RevokeRefreshToken(db *gorm.DB, refreshTokenString string) error {
	return db.Where("token = ?", refreshTokenString).Delete(&models.RefreshToken{}).Error
}

// RevokeAllUserTokens revokes every refresh token belonging to a user
func RevokeAllUserTokens(db *gorm.DB, userID uuid.UUID) error {
	return db.Where("user_id = ?", userID).Delete(&models.RefreshToken{}).Error
}

// CleanExpiredTokens removes expired tokens; called periodically by the scheduler
func CleanExpiredTokens(db *gorm.DB) error {
	return db.Where("expires_at < ?", time.Now()).Delete(&models.RefreshToken{}).Error
}

func generateSecureToken() (string, error) {
	bytes := make([]byte, 32) // 256 bits
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
