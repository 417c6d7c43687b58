package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	config "github.com/maheshrc27/teampost/configs"
	"github.com/maheshrc27/teampost/internal/api/handlers"
	"github.com/maheshrc27/teampost/internal/api/middleware"
	job "github.com/maheshrc27/teampost/internal/jobs"
	"github.com/maheshrc27/teampost/internal/lock"
	"github.com/maheshrc27/teampost/internal/metrics"
	"github.com/maheshrc27/teampost/internal/queue"
	"github.com/maheshrc27/teampost/internal/repository"
	"github.com/maheshrc27/teampost/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	cfg := config.LoadConfig()

	if cfg.AppEnv == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	switch len(cfg.SecretKey) {
	case 16, 24, 32:
	default:
		log.Fatal().Int("length", len(cfg.SecretKey)).Msg("SECRET_KEY must be 16, 24 or 32 bytes long")
	}

	slot, err := service.NewWeeklySlot(cfg.Scheduling.Weekday, cfg.Scheduling.TimeOfDay, cfg.Scheduling.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid schedule slot configuration")
	}

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("database is unreachable")
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisURI})
	defer redisClient.Close()

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	app := fiber.New(fiber.Config{
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		BodyLimit:    10 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			if code >= fiber.StatusInternalServerError {
				log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.FrontendURL,
		AllowMethods:     "GET,POST,PATCH,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	transactor := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)

	r2Service, err := service.NewR2Service(context.Background(), cfg.R2)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure object storage")
	}

	httpClient := &http.Client{Timeout: cfg.Linkedin.HTTPTimeout}
	notifier := queue.NewNotifier(client)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	subscriptionService := service.NewSubscriptionService(subscriptionRepo)
	linkedinService := service.NewLinkedinService(*cfg, userRepo, httpClient)
	platformService := service.NewPlatformService(transactor, userRepo, scheduleRepo, postRepo)
	postService := service.NewPostService(postRepo, r2Service)
	scheduleService := service.NewScheduleService(transactor, scheduleRepo, postRepo, userRepo, subscriptionService, slot, cfg.Scheduling)
	schedulerService := service.NewSchedulerService(transactor, scheduleRepo, postRepo, linkedinService, notifier, service.SchedulerOptions{
		BatchSize: cfg.Scheduling.BatchSize,
		Lease:     cfg.Scheduling.Lease,
		SecretKey: cfg.SecretKey,
	})
	settingsService := service.NewSettingsService(userRepo, subscriptionService, cfg.Scheduling.FreeScheduleLimit)
	adminService := service.NewAdminService(transactor, userRepo, postRepo, scheduleRepo, service.NewEmailPolicy(cfg.AdminEmails))

	publishJob := job.NewPublishJob(schedulerService, lock.NewRedisLocker(redisClient), cfg.Scheduling.Lease)
	refreshTokenJob := job.NewTokenRefreshJob(userRepo, linkedinService)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := db.PingContext(c.Context()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)
	app.Post("/logout", auth.Logout)

	platform := handlers.NewPlatformHandler(platformService, linkedinService, *cfg)
	app.Get("/auth/linkedin", platform.ConnectLinkedin)
	app.Get("/auth/linkedin/callback", platform.LinkedinCallback)

	// registered ahead of the session-protected group
	cronHandler := handlers.NewCronHandler(publishJob)
	app.Get("/api/cron/post-scheduler", middleware.CronAuth(cfg.Scheduling.CronSecret), cronHandler.PostScheduler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService, *cfg)
	api.Get("/user/info", user.GetUserInfo)
	api.Delete("/user", user.RemoveUser)

	settings := handlers.NewSettingsHandler(settingsService)
	api.Get("/settings", settings.GetSettings)
	api.Post("/settings/slack", settings.UpdateSlack)

	api.Get("/linkedin/status", platform.LinkedinStatus)
	api.Post("/linkedin/disconnect", platform.DisconnectLinkedin)

	post := handlers.NewPostHandler(postService)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts", post.CreatePost)
	api.Get("/posts/:id", post.GetPost)
	api.Delete("/posts/:id", post.RemovePost)
	api.Post("/posts/:id/image", post.UploadImage)

	schedule := handlers.NewScheduleHandler(scheduleService)
	api.Post("/schedule/next", schedule.Next)
	api.Post("/schedule/bulk", schedule.Bulk)
	api.Post("/schedule/create", schedule.CreateRecurring)
	api.Get("/schedule", schedule.List)
	api.Get("/schedule/:id", schedule.Get)
	api.Patch("/schedule/:id", schedule.Update)
	api.Delete("/schedule/:id", schedule.Delete)

	admin := handlers.NewAdminHandler(adminService)
	adminGroup := api.Group("/admin", middleware.AdminOnly(adminService))
	adminGroup.Post("/posts", admin.CreatePost)
	adminGroup.Post("/posts/bulk", admin.CreateBulk)
	adminGroup.Patch("/posts/:id/approval", admin.SetApproval)

	c := cron.New()
	if _, err := c.AddFunc(cfg.Scheduling.TokenRefreshSpec, refreshTokenJob.RefreshTokens); err != nil {
		log.Fatal().Err(err).Msg("invalid token refresh schedule")
	}
	if cfg.Scheduling.InternalCron {
		if _, err := c.AddFunc(cfg.Scheduling.InternalCronSpec, publishJob.RunScheduled); err != nil {
			log.Fatal().Err(err).Msg("invalid internal cron schedule")
		}
	}
	c.Start()

	worker := queue.NewWorker(nil)
	server := asynq.NewServer(redisConn, asynq.Config{
		Concurrency: 10,
	})
	go func() {
		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypeSlackNotify, worker.HandleSlackNotifyTask)

		log.Info().Msg("starting the asynq server")
		if err := server.Run(mux); err != nil {
			log.Fatal().Err(err).Msg("could not start asynq server")
		}
	}()

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()
	log.Info().Str("port", cfg.Port).Msg("server is running")

	gracefulShutdown(app, c, server)
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close database")
		return
	}
	log.Info().Msg("database connection closed")
}

func gracefulShutdown(app *fiber.App, c *cron.Cron, server *asynq.Server) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Info().Msg("shutting down server")

	<-c.Stop().Done()
	server.Shutdown()

	if err := app.ShutdownWithTimeout(30 * time.Second); err != nil {
		log.Error().Err(err).Msg("failed to shut down server")
	}

	log.Info().Msg("server shutdown complete")
}
