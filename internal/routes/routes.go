// Package routes defines the API routing configuration.
// It wires repositories into services, services into handlers, and
// applies the authentication and role middleware per route group.
package routes

import (
	"log"

	"envpermit/internal/config"
	"envpermit/internal/handlers"
	"envpermit/internal/middleware"
	"envpermit/internal/models"
	"envpermit/internal/repositories"
	"envpermit/internal/services/assessment"
	"envpermit/internal/services/auth"
	"envpermit/internal/services/billing"
	"envpermit/internal/services/fees"
	"envpermit/internal/services/notification"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Repositories
	userRepo := repositories.NewUserRepository(db, repositories.CacheService)
	rateRepo := repositories.NewRateScheduleRepository(db, repositories.CacheService)
	appRepo := repositories.NewApplicationRepository(db)
	assessmentRepo := repositories.NewAssessmentRepository(db)

	// Services
	authService := auth.NewService(userRepo)

	// Surcharge rates are deployable without a release.
	feeConfig := fees.DefaultConfig()
	feeConfig.LargeProjectRate = config.GetFloatEnv("LARGE_PROJECT_SURCHARGE_RATE", feeConfig.LargeProjectRate)
	feeConfig.AreaBandRate = config.GetFloatEnv("AREA_BAND_SURCHARGE_RATE", feeConfig.AreaBandRate)
	feeService := fees.NewService(rateRepo, feeConfig)
	notifier := notification.NewService(repositories.CacheService)

	var biller assessment.Biller
	if b, err := billing.NewService(config.GetEnv("BILLING_CURRENCY", "usd")); err != nil {
		log.Printf("billing disabled: %v", err)
	} else {
		biller = b
	}

	assessmentService := assessment.NewService(assessmentRepo, appRepo, notifier, biller)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, userRepo)
	feeHandler := handlers.NewFeeHandler(feeService)
	rateHandler := handlers.NewRateHandler(rateRepo)
	appHandler := handlers.NewApplicationHandler(appRepo, feeService)
	assessmentHandler := handlers.NewAssessmentHandler(assessmentService)

	authMiddleware := middleware.NewAuthMiddleware(authService)

	// Public routes
	app.Get("/health", handlers.HealthCheck)
	api := app.Group("/api")
	api.Post("/register", authHandler.Register)
	api.Post("/login", authHandler.Login)
	api.Post("/refresh", authHandler.Refresh)

	// Everything below requires a valid token.
	authed := api.Group("", authMiddleware.Handler)
	authed.Post("/logout", authHandler.Logout)
	authed.Post("/change-password", authHandler.ChangePassword)

	// Fee computation is open to every authenticated role.
	authed.Post("/fees/calculate", feeHandler.Calculate)

	// Rate schedule: read for all, writes gated on the rate:write
	// permission (held by admin only by default).
	authed.Get("/rates", rateHandler.List)
	authed.Put("/rates", middleware.HasPermission(models.PermissionRateWrite), rateHandler.Upsert)

	// Applications
	authed.Post("/applications", appHandler.Create)
	authed.Get("/applications", appHandler.List)
	authed.Get("/applications/:id", appHandler.Get)
	authed.Post("/applications/:id/fee", appHandler.AttachFee)
	authed.Get("/applications/:id/fee", appHandler.FeeRecords)
	authed.Post("/applications/:id/review",
		middleware.RequireRole(models.RoleRegistry), assessmentHandler.StartReview)

	// Assessments. Stage-level role checks live in the service; the
	// route gate only keeps applicants out of reviewer surfaces.
	reviewerRoles := []string{
		models.RoleRegistry, models.RoleCompliance,
		models.RoleFinance, models.RoleDirector,
	}
	authed.Get("/assessments", middleware.RequireRole(reviewerRoles...), assessmentHandler.Queue)
	authed.Get("/assessments/:id", assessmentHandler.Get)
	authed.Post("/assessments/:id/open",
		middleware.RequireRole(reviewerRoles...), assessmentHandler.OpenStage)
	authed.Post("/assessments/:id/decision",
		middleware.RequireRole(reviewerRoles...), assessmentHandler.SubmitDecision)
	authed.Post("/assessments/:id/resubmit", assessmentHandler.Resubmit)
	authed.Post("/assessments/:id/attachments",
		middleware.RequireRole(reviewerRoles...), assessmentHandler.AttachDocument)
}
