package app

import (
	"context"
	"fmt"
	"time"

	"dropnest_backend/database"
	"dropnest_backend/internal/config"
	"dropnest_backend/internal/email"
	"dropnest_backend/internal/handlers"
	"dropnest_backend/internal/logger"
	"dropnest_backend/internal/middleware"
	"dropnest_backend/internal/repositories"
	"dropnest_backend/internal/routes"
	"dropnest_backend/internal/services"
	"dropnest_backend/internal/storage"
	"dropnest_backend/internal/validator"
	"dropnest_backend/internal/verification"
	"dropnest_backend/internal/workers"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig
	logger.Init(cfg.Server.Env)
	logger.Info("logger initialized", "env", cfg.Server.Env)

	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("failed to get *sql.DB from GORM", "error", err)
	}
	if err := sqlDB.Ping(); err != nil {
		logger.Fatal("database unavailable", "error", err)
	}
	logger.Info("database connected")

	if err := database.AutoMigrate(); err != nil {
		logger.Fatal("failed to run migrations", "error", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	router, background := SetupRouter(cfg, gormDB, redisClient)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	for _, w := range background {
		w.Start(ctx)
	}

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server starting", "address", address)
	if err := router.Run(address); err != nil {
		logger.Fatal("server startup error", "error", err)
	}
}

// Worker is anything that runs in the background for the process lifetime.
type Worker interface {
	Start(ctx context.Context)
}

// SetupRouter wires the whole dependency graph and returns the router plus
// the background workers to start. Split from Run so tests can build the
// graph against fakes.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB, redisClient *redis.Client) (*gin.Engine, []Worker) {
	store, err := storage.NewStorage(storage.Config{
		Type:      cfg.Storage.Type,
		BasePath:  cfg.Storage.BasePath,
		BaseURL:   cfg.Storage.BaseURL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
	})
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	logger.Info("storage initialized", "type", cfg.Storage.Type)

	var emailProvider email.Provider
	if cfg.Email.SMTPHost != "" && cfg.Email.SMTPUsername != "" {
		templates, err := email.NewDefaultTemplateManager()
		if err != nil {
			logger.Fatal("failed to load email templates", "error", err)
		}
		emailProvider = email.NewSMTPProvider(&email.SMTPConfig{
			Host:      cfg.Email.SMTPHost,
			Port:      cfg.Email.SMTPPort,
			Username:  cfg.Email.SMTPUsername,
			Password:  cfg.Email.SMTPPassword,
			FromEmail: cfg.Email.FromEmail,
			FromName:  cfg.Email.FromName,
		}, templates)
	} else {
		logger.Warn("SMTP not configured, using mock email provider")
		emailProvider = &MockEmailProvider{}
	}

	// Repositories
	quotaRepo := repositories.NewQuotaRepository()
	accountRepo := repositories.NewAccountRepository(gormDB)
	folderRepo := repositories.NewFolderRepository(gormDB, quotaRepo)
	linkRepo := repositories.NewLinkRepository(gormDB)
	batchRepo := repositories.NewBatchRepository(gormDB)
	permRepo := repositories.NewPermissionRepository(gormDB)
	fileRepo := repositories.NewFileRepository(gormDB, quotaRepo, permRepo)
	provisionRepo := repositories.NewProvisionRepository(gormDB)

	// Services
	codes := verification.NewStore(redisClient)
	quotaSvc := services.NewQuotaService()
	notifier := services.NewNotificationService(emailProvider)
	provisioningSvc := services.NewProvisioningService(provisionRepo, accountRepo)
	folderSvc := services.NewFolderService(folderRepo, fileRepo)
	linkSvc := services.NewLinkService(linkRepo, folderRepo, batchRepo, permRepo)
	permSvc := services.NewPermissionService(linkRepo, permRepo, codes, notifier)
	uploadSvc := services.NewUploadService(
		linkRepo, accountRepo, batchRepo, fileRepo, folderRepo, permRepo,
		quotaSvc, store, notifier,
	)

	// Handlers
	v := validator.New()
	base := handlers.NewBaseHandler(v, accountRepo)
	limiter := middleware.NewFixedWindowLimiter(
		redisClient, "dropnest:uploads", cfg.RateLimit.UploadsPerMinute, time.Minute,
	)

	h := &routes.Handlers{
		Account: handlers.NewAccountHandler(base, provisioningSvc),
		Folder:  handlers.NewFolderHandler(base, folderSvc, uploadSvc),
		Link:    handlers.NewLinkHandler(base, linkSvc, permSvc),
		Upload:  handlers.NewUploadHandler(base, uploadSvc, permSvc, limiter),
	}

	if cfg.Server.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())
	router.MaxMultipartMemory = 32 << 20

	routes.RegisterRoutes(router, h)

	background := []Worker{
		workers.NewLinkWorker(linkRepo),
		workers.NewBatchWorker(batchRepo),
	}
	return router, background
}
