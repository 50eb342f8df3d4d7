package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/witnneyg/agendamento-avaliacoes-sub001/api/swagger"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/handler"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/middleware"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/repository"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/internal/service"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/cache"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/config"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/database"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/jobs"
	"github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/logger"
	corsmiddleware "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/middleware/cors"
	reqidmiddleware "github.com/witnneyg/agendamento-avaliacoes-sub001/pkg/middleware/requestid"
)

// @title Agendamento de Avaliações API
// @version 1.0.0
// @description Course catalog and evaluation scheduling administration.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	validate := validator.New()
	metrics := service.NewMetricsService()
	loc := cfg.Location()

	courseRepo := repository.NewCourseRepository(db)
	disciplineRepo := repository.NewDisciplineRepository(db)
	classRepo := repository.NewClassRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	directorRepo := repository.NewDirectorRepository(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	linkRepo := repository.NewMagicLinkRepository(db)
	schedulingRepo := repository.NewSchedulingRepository(db)

	catalogCache := service.NewCacheService(
		repository.NewCacheRepository(redisClient, "agendamento:"),
		metrics, cfg.Cache.CatalogTTL, logr, cfg.Cache.Enabled && redisClient != nil,
	)

	notifications := service.NewNotificationService(mailSender(cfg, logr), metrics, logr)
	queue := jobs.NewQueue("notifications", notifications.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.Retries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})
	notifications.AttachQueue(queue)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	queue.Start(context.Background())

	courses := service.NewCourseService(courseRepo, catalogCache, metrics, validate, logr)
	disciplines := service.NewDisciplineService(disciplineRepo, courseRepo, catalogCache, metrics, validate, logr)
	classes := service.NewClassService(classRepo, courseRepo, metrics, validate, logr)
	teachers := service.NewTeacherService(teacherRepo, metrics, validate, logr)
	directors := service.NewDirectorService(directorRepo, validate, logr)
	users := service.NewUserService(userRepo, validate, logr)
	roles := service.NewRoleService(roleRepo, logr)
	schedulings := service.NewSchedulingService(service.SchedulingDeps{
		Repo:        schedulingRepo,
		Guard:       service.NewConflictGuard(schedulingRepo),
		Courses:     courseRepo,
		Classes:     classRepo,
		Disciplines: disciplineRepo,
		Users:       userRepo,
		Directors:   directors,
		Notifier:    notifications,
		Metrics:     metrics,
		Location:    loc,
	}, validate, logr)
	auth := service.NewAuthService(userRepo, linkRepo, service.NewGoogleIDTokenVerifier(cfg.Auth.GoogleClientID), notifications, validate, logr, service.AuthConfig{
		AccessTokenSecret:   cfg.JWT.Secret,
		AccessTokenExpiry:   cfg.JWT.Expiration,
		Issuer:              cfg.JWT.Issuer,
		MagicLinkTTL:        cfg.Auth.MagicLinkTTL,
		AllowedEmailDomains: cfg.Auth.AllowedEmailDomains,
		BaseURL:             cfg.BaseURL,
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics, "/metrics", "/health", "/ready"))

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = cache.Pinger{Client: redisClient}
	}
	ops := handler.NewMetricsHandler(metrics, checks)
	r.GET("/health", ops.Health)
	r.GET("/ready", ops.Ready)
	r.GET("/metrics", ops.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Register(r.Group(cfg.APIPrefix), handler.RouterDeps{
		Auth:        handler.NewAuthHandler(auth),
		Courses:     handler.NewCourseHandler(courses),
		Disciplines: handler.NewDisciplineHandler(disciplines),
		Classes:     handler.NewClassHandler(classes),
		Teachers:    handler.NewTeacherHandler(teachers),
		Directors:   handler.NewDirectorHandler(directors),
		Users:       handler.NewUserHandler(users, roles),
		Schedulings: handler.NewSchedulingHandler(schedulings),
		Tokens:      auth,
		Audit:       userRepo,
		Logger:      logr,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	queue.Stop(shutdownCtx)
}

// mailSender picks the outbound mail transport. Without a SendGrid key the
// log sender is used so development setups never send real email.
func mailSender(cfg *config.Config, logr *zap.Logger) service.MailSender {
	if cfg.Mail.Provider == config.MailProviderSendGrid && cfg.Mail.SendGridAPIKey != "" {
		return service.NewSendGridSender(cfg.Mail.SendGridAPIKey, cfg.Mail.FromName, cfg.Mail.FromEmail)
	}
	if cfg.Mail.Provider == config.MailProviderSendGrid {
		logr.Warn("SENDGRID_API_KEY is empty, falling back to log mail sender")
	}
	return service.NewLogSender(logr)
}
