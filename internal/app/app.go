package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"focus-planner/internal/auth"
	"focus-planner/internal/bot"
	"focus-planner/internal/config"
	"focus-planner/internal/repository"
	"focus-planner/internal/sender"
	"focus-planner/internal/service"
	"focus-planner/internal/storage"
)

// reminderJobTimeout bounds one scheduled run so it finishes before the next minute.
const reminderJobTimeout = 50 * time.Second

// Services is everything the HTTP surface and the scheduler call into.
type Services struct {
	Tasks         *service.TaskService
	Rebalancer    *service.RebalanceService
	Notifications *service.NotificationService
	Reminders     *service.ReminderService
}

// NewServices wires repositories and services over one store.
func NewServices(store storage.Store, snd sender.Sender, cfg config.ReminderConfig, loc *time.Location) Services {
	taskRepo := repository.NewTaskRepository(store)
	settingRepo := repository.NewNotificationRepository(store)

	rebalancer := service.NewRebalanceService(taskRepo)
	notifications := service.NewNotificationService(settingRepo, loc)
	return Services{
		Tasks:         service.NewTaskService(taskRepo, rebalancer),
		Rebalancer:    rebalancer,
		Notifications: notifications,
		Reminders: service.NewReminderService(taskRepo, notifications, snd, service.ReminderOptions{
			CronSecret:  cfg.CronSecret,
			MaxTasks:    cfg.MaxTasks,
			SendTimeout: cfg.SendTimeout,
			Concurrency: cfg.Concurrency,
		}),
	}
}

type App struct {
	cfg       config.Config
	store     storage.Store
	redis     *redis.Client
	services  Services
	router    *gin.Engine
	scheduler *service.SchedulerService
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{cfg: cfg}

	loc, err := cfg.Reminder.Location()
	if err != nil {
		return nil, fmt.Errorf("reminder timezone: %w", err)
	}

	store, err := repository.OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = store

	rdb, err := newRedis(ctx, cfg.Redis)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.redis = rdb

	snd, err := newSender(ctx, cfg.Sender)
	if err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.services = NewServices(store, snd, cfg.Reminder, loc)
	if cfg.Telegram.Token != "" {
		reporter, err := bot.New(cfg.Telegram.Token, cfg.Telegram.AdminChatID)
		if err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
		a.services.Reminders.WithReporter(reporter)
	}

	a.router = newRouter(a.services, auth.NewSessionStore(rdb))
	a.scheduler = service.NewSchedulerService(loc)
	return a, nil
}

func (a *App) Router() *gin.Engine {
	return a.router
}

// StartScheduler begins the in-process minute trigger unless it is disabled.
func (a *App) StartScheduler() error {
	if a.cfg.Reminder.ScheduleDisabled {
		log.Println("[info] in-process reminder schedule disabled")
		return nil
	}
	secret := a.cfg.Reminder.CronSecret
	if _, err := a.scheduler.ScheduleEveryMinute(func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), reminderJobTimeout)
		defer cancel()
		if _, err := a.services.Reminders.Run(jobCtx, secret); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("[error] reminder run: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}
	a.scheduler.Start()
	return nil
}

// Close waits for a running reminder job until ctx expires, then releases
// the redis client and the store.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.scheduler != nil {
		errs = append(errs, a.scheduler.Stop(ctx))
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

func newRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func newSender(ctx context.Context, cfg config.SenderConfig) (sender.Sender, error) {
	switch cfg.Driver {
	case "ses":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return sender.NewSESSender(awsCfg, cfg.SESFrom, cfg.SMSGatewayDomain)
	case "", "log":
		log.Println("[warn] sender driver is log; reminders are not delivered")
		return sender.NewLogSender(), nil
	default:
		return nil, fmt.Errorf("unknown sender driver %q", cfg.Driver)
	}
}

func newRouter(svc Services, sessions auth.Resolver) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "Cookie", "X-Cron-Secret"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}))

	Setup(r, svc, sessions)
	return r
}
