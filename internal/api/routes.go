package api

import (
	"alcyxob/exercise-tracker/internal/service"
	"alcyxob/exercise-tracker/internal/timewindow"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(
	router *gin.Engine,
	authService service.AuthService,
	exerciseService service.ExerciseService,
	teamService service.TeamService,
	calc timewindow.Calculator,
) {
	authHandler := NewAuthHandler(authService)
	exerciseHandler := NewExerciseHandler(exerciseService)
	teamHandler := NewTeamHandler(teamService, calc)

	authMiddleware := AuthMiddleware(authService)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

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
		protected.GET("/me", func(c *gin.Context) {
			member, ok := mustMember(c)
			if !ok {
				return
			}
			c.JSON(http.StatusOK, gin.H{"memberId": member.ID.Hex(), "name": member.Name})
		})

		exerciseGroup := protected.Group("/exercises")
		{
			exerciseGroup.GET("", exerciseHandler.ListExercises)
			exerciseGroup.POST("", exerciseHandler.CreateExercise)
			exerciseGroup.GET("/totals", exerciseHandler.GetTotals)
			exerciseGroup.DELETE("/:id", exerciseHandler.RetireExercise)
			exerciseGroup.POST("/:id/start", exerciseHandler.StartExercise)
			exerciseGroup.POST("/:id/stop", exerciseHandler.StopExercise)
		}

		teamGroup := protected.Group("/teams")
		{
			teamGroup.POST("", teamHandler.CreateTeam)
			teamGroup.POST("/:id/join", teamHandler.JoinTeam)
			teamGroup.GET("/:id/ranking", teamHandler.GetRanking)
		}
	}
}
