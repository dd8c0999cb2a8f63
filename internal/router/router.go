package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/taskhive-dev/taskhive/internal/handlers"
	"github.com/taskhive-dev/taskhive/internal/middleware"
	"github.com/taskhive-dev/taskhive/internal/types"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocket)
		api.GET("/actions/recent", middleware.AuthMiddleware(), handlers.GetRecentActions)

		auth := api.Group("/auth")
		{
			auth.POST("/signup", handlers.Signup)
			auth.POST("/login", handlers.Login)
			auth.POST("/logout", handlers.Logout)
			auth.GET("/me", middleware.AuthMiddleware(), handlers.Me)
			auth.GET("/users", middleware.AuthMiddleware(), handlers.ListUsers)
		}

		boards := api.Group("/boards", middleware.AuthMiddleware())
		{
			boards.POST("", handlers.CreateBoard)
			boards.GET("", handlers.ListBoards)
			boards.GET("/:board_id", handlers.GetBoard)
			boards.PUT("/:board_id", handlers.UpdateBoard)
			boards.DELETE("/:board_id", handlers.DeleteBoard)
			boards.POST("/:board_id/members", handlers.AddMembers)

			boards.GET("/:board_id/tasks", handlers.GetTasksByBoard)
			boards.GET("/:board_id/smart-assign", handlers.GetSmartAssignedUser)
		}

		tasks := api.Group("/tasks", middleware.AuthMiddleware())
		{
			tasks.POST("", handlers.CreateTask)
			tasks.PUT("/:task_id", handlers.UpdateTask)
			tasks.PATCH("/:task_id", handlers.UpdateTaskStatus)
			tasks.DELETE("/:task_id", handlers.DeleteTask)
		}
	}

	return r
}
