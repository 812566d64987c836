package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "audithub/docs" // This is for Swagger
	"audithub/internal/auth"
	"audithub/internal/config"
	"audithub/internal/database"
	"audithub/internal/email"
	"audithub/internal/handlers"
	"audithub/internal/logger"
	"audithub/internal/middleware"
	"audithub/internal/repository"
	"audithub/internal/scheduler"
	"audithub/internal/scoring"
	"audithub/internal/service"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title AuditHub API
// @version 1.0
// @description Backend API for multi-tenant compliance audit management

// @contact.name API Support
// @contact.email support@audithub.io

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level:   cfg.Log.Level,
		Service: cfg.App.Name,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func(db *database.Database) {
		err := db.Close()
		if err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}(db)

	slog.Info("Database connection established")

	// Run database migrations
	migrator := database.NewMigrationExecutor(db.DB)
	if err := migrator.RunMigrations("./migrations"); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB)
	orgRepo := repository.NewOrganizationRepository(db.DB)
	roleRepo := repository.NewRoleRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	activityLogRepo := repository.NewActivityLogRepository(db.DB)
	orgUnitRepo := repository.NewOrgUnitRepository(db.DB)
	templateRepo := repository.NewTemplateRepository(db.DB)
	auditRepo := repository.NewAuditRepository(db.DB)
	answerRepo := repository.NewAnswerRepository(db.DB)
	sectionScoreRepo := repository.NewSectionScoreRepository(db.DB)
	recommendationRepo := repository.NewRecommendationRepository(db.DB)

	// Initialize the score engine
	engineOpts := []scoring.Option{scoring.WithScaleMax(cfg.Scoring.ScaleMax)}
	if cfg.Scoring.ScoreChoices {
		engineOpts = append(engineOpts, scoring.WithChoicePolicy(scoring.FirstChoicePolicy{}))
	}
	engine := scoring.NewEngine(engineOpts...)

	// Initialize services
	authService := auth.NewService(&cfg.JWT)
	emailService := email.NewService(&cfg.Email)
	authSvc := service.NewAuthService(userRepo, orgRepo, roleRepo, sessionRepo, authService)
	templateService := service.NewTemplateService(templateRepo)
	orgUnitService := service.NewOrgUnitService(orgUnitRepo, auditRepo)
	auditService := service.NewAuditService(auditRepo, templateRepo, answerRepo, sectionScoreRepo, recommendationRepo, orgUnitRepo, userRepo, engine)
	comparisonService := service.NewComparisonService(auditRepo, templateRepo, sectionScoreRepo)
	dashboardService := service.NewDashboardService(auditRepo, recommendationRepo)
	recommendationService := service.NewRecommendationService(recommendationRepo)

	// Initialize scheduler
	schedulerService := scheduler.NewScheduler(auditRepo, userRepo, emailService, &cfg.Scheduler)
	schedulerService.Start()
	defer schedulerService.Stop()

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(authService, sessionRepo)
	rbacMw := middleware.NewRBACMiddleware(db.DB)
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit)
	activityMw := middleware.NewActivityMiddleware(db.DB)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authSvc, activityMw, cfg)
	userHandler := handlers.NewUserHandler(authSvc, activityMw)
	templateHandler := handlers.NewTemplateHandler(templateService, activityMw)
	orgUnitHandler := handlers.NewOrgUnitHandler(orgUnitService)
	auditHandler := handlers.NewAuditHandler(auditService, comparisonService, rbacMw, activityMw)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService, rbacMw)
	recommendationHandler := handlers.NewRecommendationHandler(recommendationService)
	activityLogHandler := handlers.NewActivityLogHandler(activityLogRepo)

	// Setup router
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)
	mux.Handle("POST /api/v1/auth/logout", authMw.Authenticate(http.HandlerFunc(authHandler.Logout)))

	// Profile routes
	mux.Handle("GET /api/v1/users/me", authMw.Authenticate(http.HandlerFunc(userHandler.GetProfile)))
	mux.Handle("PUT /api/v1/users/me", authMw.Authenticate(http.HandlerFunc(userHandler.UpdateProfile)))
	mux.Handle("PUT /api/v1/users/me/password", authMw.Authenticate(http.HandlerFunc(userHandler.ChangePassword)))

	// User administration (owner only)
	mux.Handle("GET /api/v1/users",
		authMw.Authenticate(
			rbacMw.RequireRole(handlers.RoleOwner)(
				http.HandlerFunc(userHandler.ListUsers),
			),
		),
	)
	mux.Handle("POST /api/v1/users",
		authMw.Authenticate(
			rbacMw.RequireRole(handlers.RoleOwner)(
				http.HandlerFunc(userHandler.CreateUser),
			),
		),
	)
	mux.Handle("PUT /api/v1/users/{id}/active",
		authMw.Authenticate(
			rbacMw.RequireRole(handlers.RoleOwner)(
				http.HandlerFunc(userHandler.SetActive),
			),
		),
	)

	// Template routes (reads for everyone, writes for owners)
	mux.Handle("GET /api/v1/templates",
		authMw.Authenticate(http.HandlerFunc(templateHandler.ListTemplates)))
	mux.Handle("GET /api/v1/templates/{id}",
		authMw.Authenticate(http.HandlerFunc(templateHandler.GetTemplate)))
	mux.Handle("POST /api/v1/templates",
		authMw.Authenticate(
			rbacMw.RequireRole(handlers.RoleOwner)(
				http.HandlerFunc(templateHandler.CreateTemplate),
			),
		),
	)
	mux.Handle("DELETE /api/v1/templates/{id}",
		authMw.Authenticate(
			rbacMw.RequireRole(handlers.RoleOwner)(
				http.HandlerFunc(templateHandler.DeactivateTemplate),
			),
		),
	)

	// Organization unit routes (reads for everyone, writes for owners)
	mux.Handle("GET /api/v1/org-units",
		authMw.Authenticate(http.HandlerFunc(orgUnitHandler.ListOrgUnits)))
	mux.Handle("GET /api/v1/org-units/{id}",
		authMw.Authenticate(http.HandlerFunc(orgUnitHandler.GetOrgUnit)))
	mux.Handle("POST /api/v1/org-units",
		authMw.Authenticate(
			rbacMw.RequireRole(handlers.RoleOwner)(
				http.HandlerFunc(orgUnitHandler.CreateOrgUnit),
			),
		),
	)
	mux.Handle("PUT /api/v1/org-units/{id}",
		authMw.Authenticate(
			rbacMw.RequireRole(handlers.RoleOwner)(
				http.HandlerFunc(orgUnitHandler.UpdateOrgUnit),
			),
		),
	)
	mux.Handle("DELETE /api/v1/org-units/{id}",
		authMw.Authenticate(
			rbacMw.RequireRole(handlers.RoleOwner)(
				http.HandlerFunc(orgUnitHandler.DeleteOrgUnit),
			),
		),
	)

	// Audit routes
	mux.Handle("GET /api/v1/audits",
		authMw.Authenticate(http.HandlerFunc(auditHandler.ListAudits)))
	mux.Handle("POST /api/v1/audits",
		authMw.Authenticate(http.HandlerFunc(auditHandler.CreateAudit)))
	mux.Handle("POST /api/v1/audits/compare",
		authMw.Authenticate(http.HandlerFunc(auditHandler.CompareAudits)))
	mux.Handle("GET /api/v1/audits/statistics",
		authMw.Authenticate(http.HandlerFunc(dashboardHandler.GetDashboard)))
	mux.Handle("GET /api/v1/audits/{id}",
		authMw.Authenticate(http.HandlerFunc(auditHandler.GetAudit)))
	mux.Handle("PUT /api/v1/audits/{id}",
		authMw.Authenticate(http.HandlerFunc(auditHandler.UpdateAudit)))
	mux.Handle("DELETE /api/v1/audits/{id}",
		authMw.Authenticate(http.HandlerFunc(auditHandler.DeleteAudit)))

	// Audit lifecycle
	mux.Handle("POST /api/v1/audits/{id}/start",
		authMw.Authenticate(http.HandlerFunc(auditHandler.StartAudit)))
	mux.Handle("POST /api/v1/audits/{id}/complete",
		authMw.Authenticate(http.HandlerFunc(auditHandler.CompleteAudit)))
	mux.Handle("POST /api/v1/audits/{id}/reopen",
		authMw.Authenticate(http.HandlerFunc(auditHandler.ReopenAudit)))
	mux.Handle("POST /api/v1/audits/{id}/review",
		authMw.Authenticate(
			rbacMw.RequireRole(handlers.RoleOwner)(
				http.HandlerFunc(auditHandler.ReviewAudit),
			),
		),
	)
	mux.Handle("POST /api/v1/audits/{id}/unreview",
		authMw.Authenticate(
			rbacMw.RequireRole(handlers.RoleOwner)(
				http.HandlerFunc(auditHandler.UnreviewAudit),
			),
		),
	)

	// Audit content
	mux.Handle("GET /api/v1/audits/{id}/questions",
		authMw.Authenticate(http.HandlerFunc(auditHandler.GetQuestions)))
	mux.Handle("GET /api/v1/audits/{id}/answers",
		authMw.Authenticate(http.HandlerFunc(auditHandler.GetAnswers)))
	mux.Handle("POST /api/v1/audits/{id}/answers",
		authMw.Authenticate(http.HandlerFunc(auditHandler.SubmitAnswer)))
	mux.Handle("GET /api/v1/audits/{id}/results",
		authMw.Authenticate(http.HandlerFunc(auditHandler.GetResults)))
	mux.Handle("GET /api/v1/audits/{id}/progress",
		authMw.Authenticate(http.HandlerFunc(auditHandler.GetProgress)))

	// Dashboard
	mux.Handle("GET /api/v1/dashboard",
		authMw.Authenticate(http.HandlerFunc(dashboardHandler.GetDashboard)))

	// Recommendations
	mux.Handle("GET /api/v1/recommendations",
		authMw.Authenticate(http.HandlerFunc(recommendationHandler.ListRecommendations)))
	mux.Handle("PUT /api/v1/recommendations/{id}",
		authMw.Authenticate(http.HandlerFunc(recommendationHandler.UpdateRecommendation)))

	// Activity logs (owner only)
	mux.Handle("GET /api/v1/activity-logs",
		authMw.Authenticate(
			rbacMw.RequireRole(handlers.RoleOwner)(
				http.HandlerFunc(activityLogHandler.ListActivityLogs),
			),
		),
	)

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, err := w.Write([]byte(`{"status":"unhealthy","database":"error"}`))
			if err != nil {
				slog.Error("Failed to write health check response", "error", err)
				return
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{"status":"healthy","version":"` + cfg.App.Version + `"}`))
		if err != nil {
			slog.Error("Failed to write health check response", "error", err)
			return
		}
	})

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.LoggingMiddleware(
		middleware.SecurityHeaders(
			corsMw.Handler(
				rateLimiter.Limit(mux),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
