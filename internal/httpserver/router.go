package httpserver

import (
	"context"
	"strconv"
	"time"

	"projecttracker/internal/auth"
	"projecttracker/internal/handler"
	"projecttracker/internal/watch"
	"projecttracker/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *handler.AuthHandler,
	projectHandler *handler.ProjectHandler,
	milestoneHandler *handler.MilestoneHandler,
	taskHandler *handler.TaskHandler,
	jwtSecret string,
	logger *zap.Logger,
	mongoClient *mongo.Client,
	consumer *watch.MQConsumer,
) *Router {
	r := gin.Default()

	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)
		metrics.RecordHTTPRequestDuration(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(c.Writer.Status()),
			latency,
		)
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := mongoClient.Ping(ctx, nil); err != nil {
			c.JSON(500, gin.H{"status": "store_not_ready", "error": err.Error()})
			return
		}

		if consumer != nil && !consumer.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/auth/login", authHandler.Login)

	// Protected
	api := r.Group("/")
	api.Use(auth.Middleware(jwtSecret))
	{
		api.GET("/projects", projectHandler.List)
		api.POST("/projects", projectHandler.Create)
		api.PATCH("/projects/:id", projectHandler.Update)
		api.DELETE("/projects/:id", projectHandler.Delete)

		api.GET("/projects/:id/milestones", milestoneHandler.List)
		api.POST("/projects/:id/milestones", milestoneHandler.Create)
		api.PATCH("/milestones/:id", milestoneHandler.Update)
		api.DELETE("/milestones/:id", milestoneHandler.Delete)

		api.GET("/milestones/:id/tasks", taskHandler.List)
		api.POST("/milestones/:id/tasks", taskHandler.Create)
		api.PATCH("/tasks/:id", taskHandler.Update)
		api.DELETE("/tasks/:id", taskHandler.Delete)

		api.GET("/my-tasks", taskHandler.MyTasks)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
