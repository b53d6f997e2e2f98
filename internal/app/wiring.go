package app

import (
	"context"
	"fmt"
	"log"

	"edrs-docstore/internal/audit"
	"edrs-docstore/internal/auth"
	"edrs-docstore/internal/config"
	"edrs-docstore/internal/documents"
	"edrs-docstore/internal/gateway"
	"edrs-docstore/internal/http"
	"edrs-docstore/internal/http/handler"
	"edrs-docstore/internal/infra/cache"
	"edrs-docstore/internal/pathing"
	"edrs-docstore/internal/rbac"
	"edrs-docstore/internal/rbac/presets"
	"edrs-docstore/internal/registry"
	"edrs-docstore/internal/repository/postgres"
	"edrs-docstore/internal/storage/s3"

	"github.com/prometheus/client_golang/prometheus"
)

// InitializeService wires up all dependencies and returns a configured Service
func InitializeService(ctx context.Context, cfg *config.Config) (*Service, error) {
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(&cfg.Database); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Println("Database migrations applied")
	}

	db, err := postgres.New(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.RegisterPoolMetrics(prometheus.DefaultRegisterer); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to register pool metrics: %w", err)
	}

	s3Client, err := s3.NewClient(&cfg.AWS)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	log.Printf("S3 client initialized for bucket %s", s3Client.Bucket())

	userCache, closeCache, err := newUserCache(ctx, &cfg.Redis)
	if err != nil {
		db.Close()
		return nil, err
	}

	resolver, err := pathing.NewResolver(cfg.Storage.RootFolder, pathing.DefaultRoleFolders())
	if err != nil {
		closeCache()
		db.Close()
		return nil, fmt.Errorf("failed to build path resolver: %w", err)
	}

	gw, err := gateway.New(resolver, s3Client,
		gateway.WithTTL(cfg.Storage.SignedURLExpiry),
		gateway.WithAttemptTimeout(cfg.Storage.SignAttemptTimeout),
		gateway.WithRetryBackoff(cfg.Storage.SignRetryBackoff),
		gateway.WithTransientClassifier(isTransientSignFailure),
	)
	if err != nil {
		closeCache()
		db.Close()
		return nil, fmt.Errorf("failed to build access gateway: %w", err)
	}

	users := registry.New(postgres.NewUserRepository(db), userCache)
	docsRepo := postgres.NewDocumentRepository(db)
	rbacMiddleware := auth.NewRBACMiddleware(rbac.MustNew(presets.EDRS()))
	auditLogger := audit.NewLogger(db.Pool)

	docs := documents.NewService(resolver, gw, s3Client, docsRepo, rbacMiddleware,
		documents.WithMaxUploadSize(cfg.Storage.MaxUploadSize),
		documents.WithPutTimeout(cfg.Storage.PutTimeout),
	)

	// Verify only; tokens are minted by the platform auth service.
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, 0)

	checks := map[string]handler.Pinger{
		"postgres": db,
		"s3":       s3Client,
	}
	if p, ok := userCache.(handler.Pinger); ok {
		checks["redis"] = p
	}

	server := http.NewServer(&http.ServerDependencies{
		Config:         cfg,
		Documents:      docs,
		Storage:        docs,
		Users:          users,
		AuditLogger:    auditLogger,
		AuditEvents:    auditLogger,
		HealthChecks:   checks,
		AuthMiddleware: auth.NewMiddleware(jwtService, users),
		RBACMiddleware: rbacMiddleware,
	})

	return &Service{
		config:     cfg,
		db:         db,
		audit:      auditLogger,
		server:     server,
		closeCache: closeCache,
	}, nil
}

// isTransientSignFailure grants a retry to timeouts, classified outages and the SDK's
// own transient failures.
func isTransientSignFailure(err error) bool {
	return gateway.IsTransient(err) || s3.IsTransient(err)
}

// newUserCache picks Redis when an address is configured and an in-process LRU otherwise.
func newUserCache(ctx context.Context, cfg *config.RedisConfig) (cache.UserCache, func(), error) {
	if cfg.Addr == "" {
		log.Println("Role cache: in-process LRU")
		return cache.NewMemoryUserCache(cfg.RoleCacheSize, cfg.RoleCacheTTL), func() {}, nil
	}

	client, err := cache.NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Printf("Role cache: redis at %s", cfg.Addr)
	return cache.NewRedisUserCache(client, cfg.RoleCacheTTL), func() { _ = client.Close() }, nil
}
