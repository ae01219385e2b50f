package api

import (
	"net/http"

	"fittrack/backend/internal/domain"
	"fittrack/backend/internal/metrics"
	"fittrack/backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps are the collaborators the routes are wired to.
type Deps struct {
	JWTSecret  string
	JWTIssuer  string
	Core       *service.Core
	Resources  *service.Resources
	Users      *service.Users
	Principals PrincipalResolver
	Metrics    *metrics.Metrics
	Log        *zap.SugaredLogger
}

func SetupRoutes(router *gin.Engine, deps Deps) {
	router.Use(RequestIDMiddleware(), LoggingMiddleware(deps.Log, deps.Metrics))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	clientHandler := NewClientHandler(deps.Core)
	r := deps.Resources

	protected := router.Group("/api/v1")
	protected.Use(AuthMiddleware(deps.JWTSecret, deps.JWTIssuer, deps.Principals))
	{
		protected.GET("/me", func(c *gin.Context) {
			p := principalFromContext(c)
			user, err := deps.Users.Get(c.Request.Context(), p, p.UserID)
			if err != nil {
				abortWithError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"user": user, "role": p.Role, "clientId": p.ClientID})
		})

		NewResourceHandler[domain.User](deps.Users).Register(protected, "/users", true)
		NewResourceHandler[domain.Profile](r.Profiles).Register(protected, "/profiles", true)
		NewResourceHandler[domain.PlanType](r.PlanTypes).Register(protected, "/plan-types", true)
		NewResourceHandler[domain.Workout](r.Workouts).Register(protected, "/workouts", true)
		NewResourceHandler[domain.Exercise](r.Exercises).Register(protected, "/exercises", true)
		NewResourceHandler[domain.Diet](r.Diets).Register(protected, "/diets", true)
		NewResourceHandler[domain.Meal](r.Meals).Register(protected, "/meals", true)
		NewResourceHandler[domain.AssignmentRecord](r.WorkoutHistory).Register(protected, "/workout-history", false)
		NewResourceHandler[domain.AssignmentRecord](r.DietHistory).Register(protected, "/diet-history", false)
		NewResourceHandler[domain.SwapRequest](r.ExerciseSwaps).Register(protected, "/exercise-swaps", false)
		NewResourceHandler[domain.SwapRequest](r.MealSwaps).Register(protected, "/meal-swaps", false)

		NewResourceHandler[domain.Client](r.Clients).Register(protected, "/clients", true)
		clients := protected.Group("/clients/:id")
		{
			clients.POST("/assignments", clientHandler.Assign)
			clients.GET("/entitlements/:domain", clientHandler.Entitlement)
			clients.POST("/swaps", clientHandler.RequestSwap)
		}

		protected.GET("/history/:domain/:id/archive", clientHandler.HistoryArchiveURL)
	}
}
