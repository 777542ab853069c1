package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"devnotes/api/internal/config"
	"devnotes/api/internal/middleware"
	"devnotes/api/internal/repository"
	"devnotes/api/internal/service"
	"devnotes/api/internal/storage"
)

type HandlerSet struct {
	log         zerolog.Logger
	cfg         *config.AppConfig
	authService *service.AuthService
	fileService *service.FileService
	authz       *service.Authorizer
	db          *pgxpool.Pool
	cache       *redis.Client
	users       *repository.UserRepository
	files       *repository.FileRepository
	events      *repository.EventRepository
	sheets      *repository.SheetRepository
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, cache *redis.Client, store *storage.LocalStore, mirror *storage.Mirror, cfg *config.AppConfig) HandlerSet {
	userRepo := repository.NewUserRepository(db)
	fileRepo := repository.NewFileRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	eventRepo := repository.NewEventRepository(db)
	sheetRepo := repository.NewSheetRepository(db)

	audit := service.NewAuditRecorder(eventRepo, log)
	auth := service.NewAuthService(userRepo, audit, cfg, log)
	authz := service.NewAuthorizer(cfg.Security, settingRepo, cache, log)
	files := service.NewFileService(fileRepo, store, mirror, audit, log)

	return HandlerSet{
		log:         log,
		cfg:         cfg,
		authService: auth,
		fileService: files,
		authz:       authz,
		db:          db,
		cache:       cache,
		users:       userRepo,
		files:       fileRepo,
		events:      eventRepo,
		sheets:      sheetRepo,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.Use(middleware.Session(h.cfg, h.users))

	router.GET("/healthz", h.Health)

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.RegisterUser)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", h.Me)
	}

	files := router.Group("/files")
	files.Use(middleware.RequireUser())
	{
		files.GET("", h.GetFiles)
		files.POST("", h.UploadFiles)
		files.DELETE("", h.DeleteFile)
	}

	sheets := router.Group("/sheets")
	{
		sheets.GET("", h.ListSheets)
		sheets.GET("/:id", h.GetSheet)

		adminSheets := sheets.Group("")
		adminSheets.Use(middleware.RequireAdmin(h.authz))
		adminSheets.POST("", h.CreateSheet)
		adminSheets.PUT("/:id", h.UpdateSheet)
		adminSheets.DELETE("/:id", h.DeleteSheet)
	}

	admin := router.Group("/admin")
	admin.Use(middleware.RequireAdmin(h.authz))
	{
		admin.GET("/settings", h.GetSettings)
		admin.POST("/settings", h.UpdateSettings)
		admin.GET("/stats", h.Stats)
		admin.GET("/logs", h.Logs)
		admin.GET("/users", h.ListUsers)
		admin.PATCH("/users", h.BulkUpdateUsers)
		admin.DELETE("/users/:id", h.DeleteUser)
	}
}
