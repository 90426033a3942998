package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/campuskit/classroom-service/internal/cache"
	"github.com/campuskit/classroom-service/internal/events"
	"github.com/campuskit/classroom-service/internal/repositories"
	"github.com/campuskit/classroom-service/internal/validator"
	"github.com/campuskit/classroom-service/pkg/storage"
	"gorm.io/gorm"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	EnableDebugLogging bool
	LogLevel           slog.Level

	JWTSecret string
	TokenTTL  time.Duration

	DefaultTimeout time.Duration
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	cache     *cache.CacheManager
	store     *storage.Storage
	publisher events.EventPublisher
	config    ServiceManagerConfig

	// Service instances
	authService      AuthService
	classroomService ClassroomService
	materialService  MaterialService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, cacheManager *cache.CacheManager, store *storage.Storage, publisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		cache:     cacheManager,
		store:     store,
		publisher: publisher,
		config:    config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, cacheManager *cache.CacheManager, store *storage.Storage, publisher events.EventPublisher, jwtSecret string, tokenTTL time.Duration) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		LogLevel:           slog.LevelInfo,
		JWTSecret:          jwtSecret,
		TokenTTL:           tokenTTL,
		DefaultTimeout:     30 * time.Second,
	}

	return NewServiceManager(db, repo, logger, validator, cacheManager, store, publisher, config)
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	sm.authService = NewAuthService(sm.repo, sm.db, sm.logger, sm.validator, sm.cache.Session, sm.config.JWTSecret, sm.config.TokenTTL)
	sm.logger.Info("Auth service initialized")

	sm.classroomService = NewClassroomService(sm.repo, sm.db, sm.logger, sm.validator, sm.publisher)
	sm.logger.Info("Classroom service initialized")

	sm.materialService = NewMaterialService(sm.repo, sm.db, sm.logger, sm.validator, sm.store, sm.publisher)
	sm.logger.Info("Material service initialized")

	if err := sm.validateServicesHealth(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) validateServicesHealth(ctx context.Context) error {
	if repoManager, ok := sm.repo.(repositories.RepositoryManager); ok {
		if err := repoManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("repository health check failed: %w", err)
		}
	}
	return nil
}

// Service getters
func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.authService
}

func (sm *serviceManager) Classroom() ClassroomService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.classroomService
}

func (sm *serviceManager) Material() MaterialService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}

	return sm.materialService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if repoManager, ok := sm.repo.(repositories.RepositoryManager); ok {
		if err := repoManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("repository health check failed: %w", err)
		}
	}

	if sm.cache != nil {
		if err := sm.cache.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache health check failed: %w", err)
		}
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.publisher != nil {
		if err := sm.publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if repoManager, ok := sm.repo.(repositories.RepositoryManager); ok {
		if err := repoManager.Shutdown(ctx); err != nil {
			sm.logger.Error("Failed to shutdown repository manager", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// WithTimeout creates a context with the default timeout
func (sm *serviceManager) WithTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, sm.config.DefaultTimeout)
}
