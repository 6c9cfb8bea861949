package core

import (
	"log"
	"time"

	"core/cron"
	"core/handlers"
	"core/push"
	"core/services"

	authMiddleware "auth/middleware"
	authModels "auth/models"
	authUtils "auth/utils"

	"github.com/gin-gonic/gin"
	"github.com/valkey-io/valkey-go"
	"gorm.io/gorm"
)

// Options are the tunables main reads from the environment
type Options struct {
	RematchWindow time.Duration
	LockTimeoutMS int
}

type Module struct {
	Hub             *push.Hub
	PlayerService   *services.PlayerService
	UserService     *services.UserService
	PoolService     *services.PoolService
	MatchService    *services.MatchService
	MatchStore      *services.GormMatchStore
	MatchHandler    *handlers.MatchHandler
	PoolHandler     *handlers.PoolHandler
	RankingsHandler *handlers.RankingsHandler
	Scheduler       *cron.Scheduler
	db              *gorm.DB
}

func NewModule(db *gorm.DB, poolClient valkey.Client, opts Options) *Module {
	hub := push.NewHub()
	go hub.Run()

	playerService := services.NewPlayerService(db)
	userService := services.NewUserService(db)
	poolService := services.NewPoolService(poolClient)

	matchStore := services.NewGormMatchStore(db)
	eloService := services.NewEloService(db, opts.LockTimeoutMS)
	coordination := services.NewCoordination()
	matchService := services.NewMatchService(matchStore, eloService, userService, poolService, hub, coordination, opts.RematchWindow)

	matchHandler := handlers.NewMatchHandler(matchService, matchStore)
	poolHandler := handlers.NewPoolHandler(poolService, playerService)
	rankingsHandler := handlers.NewRankingsHandler(playerService)

	scheduler := cron.NewScheduler(matchService, poolService, func() error {
		return authUtils.CleanExpiredTokens(db)
	})

	return &Module{
		Hub:             hub,
		PlayerService:   playerService,
		UserService:     userService,
		PoolService:     poolService,
		MatchService:    matchService,
		MatchStore:      matchStore,
		MatchHandler:    matchHandler,
		PoolHandler:     poolHandler,
		RankingsHandler: rankingsHandler,
		Scheduler:       scheduler,
		db:              db,
	}
}

func (m *Module) SetupRoutes(r *gin.Engine) {
	api := r.Group("/api")

	matches := api.Group("/matches", authMiddleware.JWTMiddleware())
	{
		matches.POST("/invite", m.MatchHandler.Invite)
		matches.POST("/accept", m.MatchHandler.Accept)
		matches.POST("/decline", m.MatchHandler.Decline)
		matches.POST("/cancel", m.MatchHandler.Cancel)
		matches.POST("/report", m.MatchHandler.Report)
		matches.POST("/confirm", m.MatchHandler.Confirm)
		matches.POST("/rematch", m.MatchHandler.Rematch)
		matches.GET("/:id", m.MatchHandler.GetMatch)
	}

	pool := api.Group("/pool", authMiddleware.JWTMiddleware())
	{
		pool.POST("/check-in", m.PoolHandler.CheckIn)
		pool.POST("/check-out", m.PoolHandler.CheckOut)
		pool.GET("/search", m.PoolHandler.Search)
		pool.GET("/all", m.PoolHandler.All)
		pool.DELETE("", authMiddleware.RequireRole(m.db, authModels.RoleAdmin), m.PoolHandler.Flush)
		pool.POST("/seed", authMiddleware.RequireRole(m.db, authModels.RoleAdmin), m.PoolHandler.Seed)
	}

	rankings := api.Group("/rankings")
	{
		rankings.GET("", m.RankingsHandler.Global)
		rankings.GET("/characters", m.RankingsHandler.Characters)
		rankings.GET("/character/:name", m.RankingsHandler.Character)
	}

	api.GET("/profile/:username", m.RankingsHandler.Profile)
	api.GET("/stats", m.RankingsHandler.Stats)

	r.GET("/ws", m.Hub.HandleConnection)
}

// StartScheduler starts the background sweeps
func (m *Module) StartScheduler() error {
	log.Println("Starting core module scheduler...")
	return m.Scheduler.Start()
}

// StopScheduler stops the background sweeps
func (m *Module) StopScheduler() {
	log.Println("Stopping core module scheduler...")
	m.Scheduler.Stop()
}
