package cli

import (
	"context"
	"log"
	"net/http"

	"github.com/medadvisor/advisor-api/internal/config"
	"github.com/medadvisor/advisor-api/internal/database"
	"github.com/medadvisor/advisor-api/internal/dates"
	"github.com/medadvisor/advisor-api/internal/kv"
	"github.com/medadvisor/advisor-api/internal/push"
	"github.com/medadvisor/advisor-api/internal/repository"
	"github.com/medadvisor/advisor-api/internal/scheduler"
	"github.com/medadvisor/advisor-api/internal/services"
	"github.com/medadvisor/advisor-api/internal/snapshot"
	"github.com/redis/go-redis/v9"
)

// app holds the wired services shared by every command
type app struct {
	cfg           *config.Config
	redis         *redis.Client
	store         kv.Store
	lease         kv.Lease
	operator      *snapshot.Operator
	tasks         *services.TaskService
	notifications *services.NotificationService
	backups       *services.BackupService
	directory     *services.DirectoryService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := database.Connect(cfg); err != nil {
		return nil, err
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, err
	}
	db := database.GetDB()

	a := &app{cfg: cfg}

	rdb, err := kv.Connect(ctx, cfg.RedisAddr())
	if err != nil {
		log.Printf("Redis unavailable, keeping confirmations and leases in memory: %v", err)
		memory := kv.NewMemory()
		a.store, a.lease = memory, memory
	} else {
		a.redis = rdb
		a.store, a.lease = kv.NewRedisStore(rdb), kv.NewRedisLease(rdb)
	}

	taskRepo := repository.NewTaskRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	userRepo := repository.NewUserRepository(db)
	opsRepo := repository.NewBackupOperationRepository(db)

	normalizer := newNormalizer(cfg)

	a.tasks = services.NewTaskService(catalogRepo, taskRepo, services.NewTaskCreator(taskRepo, cfg.ItemTimeout), normalizer)
	a.notifications = services.NewNotificationService(userRepo, taskRepo, newGateway(cfg), normalizer, services.NotificationOptions{
		UTCOffsetHours: cfg.NotifyUTCOffsetHours,
		Concurrency:    cfg.NotifyConcurrency,
		ItemTimeout:    cfg.ItemTimeout,
	})
	a.directory = services.NewDirectoryService(userRepo, catalogRepo)
	a.operator = snapshot.NewOperator(db, opsRepo, cfg.BackupDir, cfg.OperationTimeout)
	a.backups = services.NewBackupService(a.operator, opsRepo, a.store, cfg.RestoreTokenTTL)

	log.Printf("Notification day boundary is %s", a.notifications.Location())
	return a, nil
}

// newNormalizer reads epoch dates in the notification zone so "today" means the same day everywhere
func newNormalizer(cfg *config.Config) *dates.Normalizer {
	normalizer := dates.NewNormalizer(dates.ParseSlashOrder(cfg.DateSlashOrder))
	normalizer.EpochLocation = services.NotificationZone(cfg.NotifyUTCOffsetHours)
	return normalizer
}

func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	return scheduler.New(a.notifications, a.lease, scheduler.Options{
		Location:    a.notifications.Location(),
		MorningSpec: a.cfg.MorningCron,
		EveningSpec: a.cfg.EveningCron,
		PassTimeout: a.cfg.RequestTimeout,
	})
}

// close waits for background backup work and releases connections
func (a *app) close() {
	a.operator.Wait()
	if a.redis != nil {
		a.redis.Close()
	}
	database.Close()
}

func newGateway(cfg *config.Config) push.Gateway {
	if !cfg.FCMConfigured() {
		log.Println("FCM credentials not set, push messages will only be logged")
		return push.LogGateway{}
	}
	return push.NewFCMGateway(cfg.FCMEndpoint, cfg.FCMProjectID, cfg.FCMAccessToken, &http.Client{Timeout: cfg.ItemTimeout})
}
