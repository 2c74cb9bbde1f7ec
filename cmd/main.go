package main

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"school-service/internal/engine"
	"school-service/internal/handler"
	"school-service/internal/middleware"
	"school-service/internal/store"
	"school-service/pkg/config"
	"school-service/pkg/database"
	"school-service/pkg/jwtutil"
	"school-service/pkg/logger"
	"school-service/prometheus"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	if err := logger.InitLogger(&logger.LogConfig{
		Level:       cfg.Log.Level,
		Environment: cfg.Server.Env,
		ServiceName: "school-service",
	}); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	log.Info("Starting school service...", cfg.LogConfig()...)

	// Initialize database
	if err := database.Initialize(cfg.DB); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(cfg.JWT.SigningKey, cfg.JWT.LongExpirationHours, cfg.JWT.ShortExpirationHours)
	log.Info("JWT utility initialized")

	// Wire the domain engine to the handlers
	st := store.NewGormStore(database.GetDB())
	eng := engine.New(st, log)
	handler.Init(eng)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))

	// Authentication routes - these don't belong under /api since they're for getting access to the API
	auth := e.Group("/auth")
	// Credential guessing is throttled per client IP when redis is configured
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		auth.Use(middleware.RateLimitMiddleware(
			middleware.NewRedisLimiter(rdb), cfg.RateLimit.Max, cfg.RateLimit.Window))
		log.Info("Rate limiting enabled", zap.String("redis_addr", cfg.Redis.Addr))
	}
	auth.POST("/register", handler.Register)
	auth.POST("/login", handler.Login)
	auth.POST("/token", handler.CreateShortToken)

	// API routes - all require a valid session token
	api := e.Group("/api")
	api.Use(middleware.SessionMiddleware(st))

	// School management
	schools := api.Group("/schools")
	schools.POST("", handler.CreateSchool)
	schools.GET("", handler.ListSchools)
	schools.GET("/:id", handler.GetSchool)
	schools.PATCH("/:id", handler.UpdateSchool)
	schools.DELETE("/:id", handler.DeleteSchool)
	schools.GET("/:id/grades", handler.SchoolGrades)
	schools.GET("/:id/classrooms", handler.SchoolClassrooms)
	schools.GET("/:id/staff", handler.SchoolStaff)
	schools.GET("/:id/students", handler.SchoolStudents)

	// Grade management
	grades := api.Group("/grades")
	grades.POST("", handler.CreateGrade)
	grades.GET("", handler.ListGrades)
	grades.GET("/:id", handler.GetGrade)
	grades.PATCH("/:id", handler.UpdateGrade)
	grades.DELETE("/:id", handler.DeleteGrade)
	grades.GET("/:id/classrooms", handler.GradeClassrooms)

	// Classroom management
	classrooms := api.Group("/classrooms")
	classrooms.POST("", handler.CreateClassroom)
	classrooms.GET("", handler.ListClassrooms)
	classrooms.GET("/:id", handler.GetClassroom)
	classrooms.PATCH("/:id", handler.UpdateClassroom)
	classrooms.DELETE("/:id", handler.DeleteClassroom)
	classrooms.GET("/:id/students", handler.ClassroomStudents)
	classrooms.GET("/:id/teachers", handler.ClassroomTeachers)

	// Student management
	students := api.Group("/students")
	students.POST("", handler.CreateStudent)
	students.GET("", handler.ListStudents)
	students.GET("/:id", handler.GetStudent)
	students.PATCH("/:id", handler.UpdateStudent)
	students.DELETE("/:id", handler.DeleteStudent)
	students.POST("/:id/transfer", handler.TransferStudent)

	// Staff management
	staff := api.Group("/staff")
	staff.POST("", handler.CreateStaff)
	staff.GET("", handler.ListStaff)
	staff.GET("/:id", handler.GetStaff)
	staff.PATCH("/:id", handler.UpdateStaff)
	staff.GET("/:id/classrooms", handler.StaffClassrooms)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
