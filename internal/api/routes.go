package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"smplanner/marketing-app/internal/replica"
	"smplanner/marketing-app/internal/service"
)

// SetupRoutes wires all handlers onto the Gin engine. syncer may be nil
// when replica sync is disabled.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authService service.AuthService,
	clientService service.ClientService,
	syncer *replica.Syncer,
	logger *zap.Logger,
) {
	authHandler := NewAuthHandler(authService, logger)
	clientHandler := NewClientHandler(clientService, logger)
	planHandler := NewPlanHandler(clientService, logger)
	syncHandler := NewSyncHandler(syncer, logger)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(authMiddleware)
	{
		clientGroup := protected.Group("/clients")
		{
			clientGroup.POST("", clientHandler.CreateClient)
			clientGroup.GET("", clientHandler.ListClients)
			clientGroup.GET("/:clientId", clientHandler.GetClient)
			clientGroup.PUT("/:clientId", clientHandler.UpdateClient)
			clientGroup.DELETE("/:clientId", clientHandler.DeleteClient)

			// --- Finances ---
			clientGroup.PUT("/:clientId/finances/monthly-budget", clientHandler.SetMonthlyBudget)
			clientGroup.PUT("/:clientId/finances/current-production", clientHandler.SetCurrentProduction)
			clientGroup.PUT("/:clientId/finances/production-goal", clientHandler.SetProductionGoal)

			// --- Photo ---
			clientGroup.POST("/:clientId/photo/upload-url", clientHandler.RequestPhotoUploadURL)
			clientGroup.POST("/:clientId/photo/confirm", clientHandler.ConfirmPhotoUpload)
			clientGroup.GET("/:clientId/photo/url", clientHandler.GetPhotoDownloadURL)

			// --- Marketing plan ---
			clientGroup.POST("/:clientId/plan", planHandler.BuildPlan)
			clientGroup.GET("/:clientId/plan", planHandler.GetPlan)
			clientGroup.POST("/:clientId/plan/options/:optionId/toggle", planHandler.ToggleOption)
			clientGroup.PUT("/:clientId/plan/external/focus", planHandler.SetExternalFocus)
			clientGroup.PUT("/:clientId/plan/external/budget", planHandler.SetExternalBudget)
			clientGroup.POST("/:clientId/plan/external/activate", planHandler.ActivateExternal)
			clientGroup.POST("/:clientId/plan/external/deactivate", planHandler.DeactivateExternal)
		}

		protected.POST("/sync/pull", syncHandler.Pull)
	}
}
