package auth

import (
	"auth/handlers"
	"auth/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlayerRegistrar is re-exported so callers can wire the core player service
// without this package depending on core.
type PlayerRegistrar = handlers.PlayerRegistrar

type Module struct {
	Handler *handlers.AuthHandler
}

func NewModule(db *gorm.DB, registrar PlayerRegistrar) *Module {
	return &Module{
		Handler: handlers.NewAuthHandler(db, registrar),
	}
}

func (m *Module) SetupRoutes(r *gin.Engine) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", m.Handler.Register)
		auth.POST("/login", m.Handler.Login)
		auth.POST("/refresh", m.Handler.RefreshToken)
		auth.POST("/logout", m.Handler.Logout)
		auth.POST("/logout-all", middleware.JWTMiddleware(), m.Handler.LogoutAll)
	}
}

func JWTMiddleware() gin.HandlerFunc {
	return middleware.JWTMiddleware()
}

func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	return middleware.GetUserID(c)
}

func GetUsername(c *gin.Context) (string, bool) {
	return middleware.GetUsername(c)
}

func RequireRole(db *gorm.DB, role string) gin.HandlerFunc {
	return middleware.RequireRole(db, role)
}

func RequireAnyRole(db *gorm.DB, roles ...string) gin.HandlerFunc {
	return middleware.RequireAnyRole(db, roles...)
}
