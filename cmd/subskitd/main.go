package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/subskit/internal/storefront"
	"github.com/dmitrymomot/subskit/pkg/config"
	"github.com/dmitrymomot/subskit/pkg/email"
	"github.com/dmitrymomot/subskit/pkg/logger"
	"github.com/dmitrymomot/subskit/pkg/pg"
	"github.com/dmitrymomot/subskit/pkg/queue"
	"github.com/dmitrymomot/subskit/pkg/redis"
	"github.com/dmitrymomot/subskit/svc/dispatcher"
	"github.com/dmitrymomot/subskit/svc/processor"
	"github.com/dmitrymomot/subskit/svc/subscription"
)

type appConfig struct {
	LogLevel  slog.Level `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string     `env:"LOG_FORMAT" envDefault:"json"`

	// Schedule is the cron expression driving scheduler passes.
	Schedule string `env:"PROCESSOR_SCHEDULE" envDefault:"@hourly"`

	// QueueDriver selects the task hand-off transport: memory or redis.
	QueueDriver     string `env:"QUEUE_DRIVER" envDefault:"memory"`
	QueueConcurrent int    `env:"QUEUE_MAX_CONCURRENT" envDefault:"4"`

	// EmailDriver selects reminder delivery: off, dev or postmark.
	EmailDriver string `env:"EMAIL_DRIVER" envDefault:"off"`
	DevEmailDir string `env:"DEV_EMAIL_DIR" envDefault:"./emails"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var appCfg appConfig
	config.MustLoad(&appCfg)

	logOpts := []logger.Option{logger.WithLevel(appCfg.LogLevel)}
	if appCfg.LogFormat == "text" {
		logOpts = append(logOpts, logger.WithTextFormatter())
	} else {
		logOpts = append(logOpts, logger.WithJSONFormatter())
	}
	log := logger.New(logOpts...)
	slog.SetDefault(log)

	if err := run(ctx, appCfg, log); err != nil && ctx.Err() == nil {
		log.LogAttrs(ctx, slog.LevelError, "daemon failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg appConfig, log *slog.Logger) error {
	var pgCfg pg.Config
	config.MustLoad(&pgCfg)

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, pgCfg, log); err != nil {
		return err
	}

	store, err := subscription.NewPgStore(pool)
	if err != nil {
		return err
	}

	enqueueRepo, workerRepo, err := buildQueueStorage(ctx, appCfg)
	if err != nil {
		return err
	}
	enqueuer, err := queue.NewEnqueuer(enqueueRepo)
	if err != nil {
		return err
	}

	var sfCfg storefront.Config
	config.MustLoad(&sfCfg)
	orders, err := storefront.New(sfCfg)
	if err != nil {
		return err
	}

	disp, err := dispatcher.New(store, orders,
		dispatcher.WithNotifier(dispatcher.NewLogNotifier(log)),
		dispatcher.WithLogger(log),
	)
	if err != nil {
		return err
	}

	var procCfg processor.Config
	config.MustLoad(&procCfg)
	procOpts := []processor.Option{processor.WithLogger(log)}
	if reminder, err := buildReminderMailer(appCfg, store); err != nil {
		return err
	} else if reminder != nil {
		procOpts = append(procOpts, processor.WithReminderNotifier(reminder))
	}
	proc, err := processor.New(procCfg, store, enqueuer, procOpts...)
	if err != nil {
		return err
	}

	worker, err := queue.NewWorker(workerRepo,
		queue.WithMaxConcurrentTasks(appCfg.QueueConcurrent),
		queue.WithWorkerLogger(log),
	)
	if err != nil {
		return err
	}
	worker.RegisterHandlers(processor.NewProcessInstallmentsHandler(store, orders, disp, log))

	workerDone := make(chan error, 1)
	go func() {
		workerDone <- worker.Run(ctx)
	}()

	// Overlap guard: a pass that outlives the cron interval skips the next
	// tick instead of running concurrently against the same rows.
	var running atomic.Bool
	scheduler := cron.New()
	_, err = scheduler.AddFunc(appCfg.Schedule, func() {
		if !running.CompareAndSwap(false, true) {
			log.LogAttrs(ctx, slog.LevelWarn, "previous scheduler pass still running, skipping tick")
			return
		}
		defer running.Store(false)

		if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
			log.LogAttrs(ctx, slog.LevelError, "scheduler pass failed", logger.Error(err))
		}
	})
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.LogAttrs(ctx, slog.LevelInfo, "subskitd started",
		slog.String("schedule", appCfg.Schedule),
		slog.String("queue_driver", appCfg.QueueDriver),
		slog.String("email_driver", appCfg.EmailDriver),
	)

	<-ctx.Done()
	return <-workerDone
}

func buildQueueStorage(ctx context.Context, appCfg appConfig) (queue.EnqueuerRepository, queue.WorkerRepository, error) {
	switch appCfg.QueueDriver {
	case "redis":
		var redisCfg redis.Config
		config.MustLoad(&redisCfg)
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return nil, nil, err
		}
		storage, err := queue.NewRedisStorage(client, "")
		if err != nil {
			return nil, nil, err
		}
		return storage, storage, nil
	default:
		storage := queue.NewMemoryStorage()
		return storage, storage, nil
	}
}

func buildReminderMailer(appCfg appConfig, store *subscription.PgStore) (*email.ReminderMailer, error) {
	var sender email.EmailSender
	switch appCfg.EmailDriver {
	case "postmark":
		var emailCfg email.Config
		config.MustLoad(&emailCfg)
		client, err := email.NewPostmarkClient(emailCfg)
		if err != nil {
			return nil, err
		}
		sender = client
	case "dev":
		sender = email.NewDevSender(appCfg.DevEmailDir)
	default:
		return nil, nil
	}
	return email.NewReminderMailer(sender, store)
}
