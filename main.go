package main

import (
	"log"

	"auth"
	"core"
	coreServices "core/services"

	"smashrank-api/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// @title           SmashRank API
// @version         1.0
// @description     Real-time 1v1 ladder with per-character ratings

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey  BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config.ConnectDatabase()

	poolClient, err := coreServices.DialPool(config.ValkeyURL())
	if err != nil {
		log.Fatalf("Failed to connect to the pool: %v", err)
	}
	defer poolClient.Close()

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	coreModule := core.NewModule(config.DB, poolClient, core.Options{
		RematchWindow: config.RematchWindow(),
		LockTimeoutMS: config.EloLockTimeoutMS(),
	})
	coreModule.SetupRoutes(r)

	// Registration creates the ladder row alongside the account.
	authModule := auth.NewModule(config.DB, coreModule.PlayerService)
	authModule.SetupRoutes(r)

	r.GET("/health", healthHandler)

	if err := coreModule.StartScheduler(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer coreModule.StopScheduler()

	port := config.Port()
	log.Printf("Server starting on port %s", port)
	r.Run(":" + port)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Message  string `json:"message" example:"Server is running"`
	Database string `json:"database" example:"connected"`
}

// @Summary Health Check
// @Description Check if the server is running and database is connected
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func healthHandler(c *gin.Context) {
	database := "connected"
	if sqlDB, err := config.DB.DB(); err != nil || sqlDB.Ping() != nil {
		database = "unavailable"
	}
	c.JSON(200, HealthResponse{
		Message:  "Server is running",
		Database: database,
	})
}
