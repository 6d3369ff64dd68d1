package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"medbook-server/internal/config"
	"medbook-server/internal/handlers"
	"medbook-server/internal/middleware"
	"medbook-server/internal/models"
	"medbook-server/internal/repository"
	"medbook-server/internal/scheduling"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, log zerolog.Logger) {
	appointmentRepo := repository.NewAppointmentRepo(db)
	userRepo := repository.NewUserRepo(db)
	scheduler := scheduling.NewService(appointmentRepo, userRepo, log)

	authHandler := handlers.NewAuthHandler(db, cfg)
	userHandler := handlers.NewUserHandler(db)
	appointmentHandler := handlers.NewAppointmentHandler(scheduler)
	adminHandler := handlers.NewAdminHandler(scheduler, userRepo)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		userRoutes := private.Group("/users")
		{
			// Doctor listing is open to all authenticated users for booking
			userRoutes.GET("/doctors", userHandler.GetDoctors)

			// Patient listing for doctors and admins
			userRoutes.GET("/patients", middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin), userHandler.GetPatients)

			adminRoutes := userRoutes.Group("")
			adminRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
			{
				adminRoutes.POST("", userHandler.CreateUser)
				adminRoutes.GET("", userHandler.GetUsers)
				adminRoutes.GET("/:id", userHandler.GetUserByID)
				adminRoutes.PUT("/:id", userHandler.UpdateUser)
				adminRoutes.DELETE("/:id", userHandler.DeleteUser)
			}
		}

		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)

			// Role-aware listing; further authorization inside the handlers
			appointmentRoutes.GET("", appointmentHandler.GetAppointmentsForUser)
			appointmentRoutes.GET("/available-slots", appointmentHandler.GetAvailableSlots)
			appointmentRoutes.GET("/doctor/:doctorId", appointmentHandler.GetAppointmentsByDoctor)
			appointmentRoutes.GET("/patient/:patientId", appointmentHandler.GetAppointmentsByPatient)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)

			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.PATCH("/:id/reschedule", appointmentHandler.RescheduleAppointment)
			appointmentRoutes.DELETE("/:id", appointmentHandler.DeleteAppointment)

			// Bulk cancellation of a doctor's schedule over a date range
			appointmentRoutes.POST("/doctor/:doctorId/cancel-range",
				middleware.RoleAuthMiddleware(models.RoleDoctor, models.RoleAdmin),
				appointmentHandler.CancelDoctorRange)
		}

		adminGroup := private.Group("/admin")
		adminGroup.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			adminGroup.GET("/stats", adminHandler.GetStats)
		}
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
