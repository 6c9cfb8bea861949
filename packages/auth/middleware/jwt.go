package middleware

import (
	"net/http"
	"strings"

	"auth/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// JWTMiddleware requires a valid bearer access token.
// On success the user id and username are placed in the gin context.
func JWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
			c.Abort()
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalJWTMiddleware resolves identity when a token is present but never rejects
func OptionalJWTMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := parseBearer(c); ok {
			setIdentity(c, claims)
		}
		c.Next()
	}
}

func parseBearer(c *gin.Context) (*utils.Claims, bool) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}

	claims, err := utils.ParseToken(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		return nil, false
	}
	return claims, true
}

func setIdentity(c *gin.Context, claims *utils.Claims) {
	if userID, err := uuid.Parse(claims.Subject); err == nil {
		c.Set("user_id", userID)
	}
	c.Set("username", claims.Username)
}

// GetUserID returns the authenticated user's UUID from the gin context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}

// GetUsername returns the authenticated user's handle from the gin context
func GetUsername(c *gin.Context) (string, bool) {
	value, exists := c.Get("username")
	if !exists {
		return "", false
	}
	username, ok := value.(string)
	return username, ok
}
