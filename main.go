package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"performance-service/internal/db"
	"performance-service/internal/event"
	"performance-service/internal/handlers"
	"performance-service/internal/monitoring"
	"performance-service/internal/repository"
	"performance-service/internal/service"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		log.Fatal("MONGO_URI is required")
	}
	db.InitMongo(mongoURI)
	defer db.Disconnect()

	logger, err := newLogger()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	monitoring.Init()

	// RabbitMQ event publisher
	rabbitURL := os.Getenv("RABBITMQ_URI")
	eventExchange := os.Getenv("RABBITMQ_EXCHANGE")
	var publisher *event.EventPublisher
	if rabbitURL != "" && eventExchange != "" {
		publisher, err = event.NewEventPublisher(rabbitURL, eventExchange)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
	} else {
		log.Println("RabbitMQ not configured, events will not be published")
	}

	dbName := os.Getenv("MONGO_DB")
	if dbName == "" {
		dbName = "performance_service"
	}
	database := db.Client.Database(dbName)

	performanceRepo := repository.NewPerformanceRepository(database)
	quizRepo := repository.NewQuizRepository(database)
	ensureIndexes(performanceRepo, quizRepo, logger)

	performanceService := service.NewPerformanceService(performanceRepo, logger)
	quizService := service.NewQuizService(quizRepo, logger)

	performanceHandler := handlers.NewPerformanceHandler(performanceService)
	quizHandler := handlers.NewQuizHandler(quizService)

	r := gin.Default()
	r.Use(monitoring.MetricsMiddleware())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "X-CSRF-Token", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", monitoring.PrometheusHandler())

	// Public routes - quiz definitions without answers
	publicQuiz := r.Group("/public/performance/quiz")
	{
		publicQuiz.GET("/:topic", func(c *gin.Context) {
			quizHandler.GetQuiz(c)
			if publisher != nil {
				publisher.Publish("quiz.viewed", gin.H{"topic": c.Param("topic")})
			}
		})
	}

	setupProtectedRoutes(r, performanceHandler, quizHandler, publisher)

	port := os.Getenv("PORT")
	if port == "" {
		port = "6677"
	}
	r.Run(":" + port)
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("MODE") == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func ensureIndexes(performanceRepo *repository.PerformanceRepository, quizRepo *repository.QuizRepository, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := performanceRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("could not create performance indexes", zap.Error(err))
	}
	if err := quizRepo.EnsureIndexes(ctx); err != nil {
		logger.Warn("could not create quiz indexes", zap.Error(err))
	}
}

func setupProtectedRoutes(r *gin.Engine, performanceHandler *handlers.PerformanceHandler, quizHandler *handlers.QuizHandler, publisher *event.EventPublisher) {
	protected := r.Group("/protected/performance")

	// ownerId comes from the gateway-resolved principal
	protected.Use(func(c *gin.Context) {
		if c.GetHeader("X-User-ID") == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "MISSING_USER_ID",
			})
			c.Abort()
			return
		}
		c.Next()
	})

	{
		protected.GET("/student/:studentId", performanceHandler.GetRecord)

		protected.POST("/student/:studentId/summary", func(c *gin.Context) {
			performanceHandler.UpsertSummary(c)
			if publisher != nil {
				publisher.Publish("performance.summary.updated", gin.H{
					"student_id": c.Param("studentId"),
					"owner_id":   c.GetHeader("X-User-ID"),
				})
			}
		})

		protected.POST("/student/:studentId/weekly-score", func(c *gin.Context) {
			performanceHandler.AppendWeeklyScore(c)
			if publisher != nil {
				publisher.Publish("performance.weekly_score.added", gin.H{
					"student_id": c.Param("studentId"),
					"owner_id":   c.GetHeader("X-User-ID"),
				})
			}
		})

		protected.POST("/student/:studentId/subject-average", func(c *gin.Context) {
			performanceHandler.UpsertSubjectAverage(c)
			if publisher != nil {
				publisher.Publish("performance.subject_average.updated", gin.H{
					"student_id": c.Param("studentId"),
					"owner_id":   c.GetHeader("X-User-ID"),
				})
			}
		})

		protected.POST("/student/:studentId/assessment", func(c *gin.Context) {
			performanceHandler.UpsertAssessmentBreakdown(c)
			if publisher != nil {
				publisher.Publish("performance.assessment.updated", gin.H{
					"student_id": c.Param("studentId"),
					"owner_id":   c.GetHeader("X-User-ID"),
				})
			}
		})

		protected.POST("/student/:studentId/weak-topic", func(c *gin.Context) {
			performanceHandler.UpsertWeakTopic(c)
			if publisher != nil {
				publisher.Publish("performance.weak_topic.updated", gin.H{
					"student_id": c.Param("studentId"),
					"owner_id":   c.GetHeader("X-User-ID"),
				})
			}
		})

		protected.POST("/student/:studentId/study-log", func(c *gin.Context) {
			performanceHandler.AppendStudyLog(c)
			if publisher != nil {
				publisher.Publish("performance.study_log.added", gin.H{
					"student_id": c.Param("studentId"),
					"owner_id":   c.GetHeader("X-User-ID"),
				})
			}
		})

		protected.POST("/quiz", quizHandler.CreateQuiz)

		protected.POST("/quiz/:topic/submit", func(c *gin.Context) {
			quizHandler.SubmitQuiz(c)
			if publisher != nil {
				publisher.Publish("quiz.submitted", gin.H{
					"topic":    c.Param("topic"),
					"owner_id": c.GetHeader("X-User-ID"),
				})
			}
		})
	}
}
