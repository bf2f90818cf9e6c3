package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"docinsight-backend/internal/analyses"
	"docinsight-backend/internal/documents"
	"docinsight-backend/internal/llm"
	"docinsight-backend/internal/llm/gemini"
	"docinsight-backend/internal/llm/openai"
	"docinsight-backend/internal/session"
	"docinsight-backend/internal/shared/config"
	"docinsight-backend/internal/shared/metrics"
	"docinsight-backend/internal/shared/server/middleware"
	"docinsight-backend/internal/shared/server/respond"
	"docinsight-backend/internal/shared/storage/db"
	"docinsight-backend/internal/shared/storage/object"
	localstore "docinsight-backend/internal/shared/storage/object/local"
	s3store "docinsight-backend/internal/shared/storage/object/s3"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Session(),
	)

	// Dependencies
	store := buildObjectStore(cfg)
	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		dbConn, err := db.Connect(context.Background(), cfg.DatabaseURL, opts)
		if err != nil {
			log.Printf("failed to connect database, falling back to memory: %v", err)
		} else {
			if err := db.RunMigrations(context.Background(), dbConn); err != nil {
				log.Printf("failed to run migrations, falling back to memory: %v", err)
				dbConn = nil
			}
		}
		sqlDB = dbConn
	}

	var docRepo documents.DocumentsRepo
	if sqlDB != nil {
		docRepo = &documents.PGRepo{DB: sqlDB}
	} else {
		docRepo = documents.NewMemoryRepo()
	}
	docSvc := &documents.Service{Store: store, Repo: docRepo, StorageProvider: cfg.ObjectStoreType}
	docHandler := documents.NewHandler(docSvc)

	var analysisRepo analyses.Repo
	if sqlDB != nil {
		analysisRepo = &analyses.PGRepo{DB: sqlDB}
	} else {
		analysisRepo = analyses.NewMemoryRepo()
	}

	current := session.NewHolder[analyses.CurrentResult]()
	analysisSvc := &analyses.Service{
		Repo:     analysisRepo,
		DocRepo:  docRepo,
		Store:    store,
		LLM:      buildLLMClient(cfg),
		Current:  current,
		Provider: cfg.LLMProvider,
		Model:    cfg.LLMModel,
	}
	analysisHandler := analyses.NewHandler(analysisSvc, docRepo, current)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())
	docHandler.RegisterRoutes(api)
	analysisHandler.RegisterRoutes(api)

	return r
}

func buildObjectStore(cfg config.Config) object.ObjectStore {
	if cfg.ObjectStoreType == "s3" {
		store, err := s3store.New(context.Background(), cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			log.Fatalf("failed to init s3 object store: %v", err)
		}
		return store
	}
	return localstore.New(cfg.LocalStoreDir)
}

func buildLLMClient(cfg config.Config) llm.Client {
	switch cfg.LLMProvider {
	case "gemini":
		client, err := gemini.NewClient(cfg.GeminiAPIKey, cfg.LLMModel)
		if err != nil {
			log.Fatalf("failed to init gemini client: %v", err)
		}
		return client
	case "openai":
		client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
		if err != nil {
			log.Fatalf("failed to init openai client: %v", err)
		}
		return client
	default:
		log.Printf("LLM_PROVIDER not configured, analyses will fail until one is set")
		return llm.PlaceholderClient{}
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
