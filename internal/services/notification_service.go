package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/medadvisor/advisor-api/internal/dates"
	"github.com/medadvisor/advisor-api/internal/models"
	"github.com/medadvisor/advisor-api/internal/push"
	"github.com/medadvisor/advisor-api/internal/repository"
	"golang.org/x/sync/errgroup"
)

const (
	reminderTitle   = "تذكير بالمهام"
	untitledTask    = "بدون عنوان"
	defaultParallel = 4
)

// NotificationBatch is the single reminder for one user in one pass
type NotificationBatch struct {
	AssigneeID string
	Token      string
	Date       dates.Date
	TaskIDs    []string
	TaskTitles []string
}

// Message renders the batch. One task shows its title, several show the count.
func (b NotificationBatch) Message(offsetDays int) push.Message {
	when := "اليوم"
	if offsetDays == 1 {
		when = "غداً"
	}

	var body string
	if len(b.TaskIDs) == 1 {
		title := b.TaskTitles[0]
		if title == "" {
			title = untitledTask
		}
		body = fmt.Sprintf("عندك %s مهمة: %s", when, title)
	} else {
		body = fmt.Sprintf("عندك %s %d مهام", when, len(b.TaskIDs))
	}

	return push.Message{
		Token: b.Token,
		Title: reminderTitle,
		Body:  body,
		Data: map[string]string{
			"type":  "task_reminder",
			"date":  b.Date.String(),
			"count": strconv.Itoa(len(b.TaskIDs)),
		},
	}
}

// BuildReport holds the batches of a pass and the records that were left out
type BuildReport struct {
	Date         dates.Date
	Batches      []NotificationBatch
	InvalidDates []string
	Errors       []string
}

// PassResult is the outcome of a daily notification pass
type PassResult struct {
	Date         dates.Date
	Batches      int
	Sent         int
	InvalidDates int
	Errors       []string
}

// NotificationService aggregates due tasks per user and sends one reminder each
type NotificationService struct {
	userRepo    repository.UserRepository
	taskRepo    repository.TaskRepository
	gateway     push.Gateway
	normalizer  *dates.Normalizer
	location    *time.Location
	concurrency int
	itemTimeout time.Duration
	now         func() time.Time
}

// NotificationOptions tunes a NotificationService
type NotificationOptions struct {
	UTCOffsetHours int
	Concurrency    int
	ItemTimeout    time.Duration
	Now            func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(userRepo repository.UserRepository, taskRepo repository.TaskRepository, gateway push.Gateway, normalizer *dates.Normalizer, opts NotificationOptions) *NotificationService {
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultParallel
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &NotificationService{
		userRepo:    userRepo,
		taskRepo:    taskRepo,
		gateway:     gateway,
		normalizer:  normalizer,
		location:    NotificationZone(opts.UTCOffsetHours),
		concurrency: opts.Concurrency,
		itemTimeout: opts.ItemTimeout,
		now:         opts.Now,
	}
}

// NotificationZone is the fixed UTC offset zone used for notification days
func NotificationZone(offsetHours int) *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", offsetHours), offsetHours*3600)
}

// Location is the fixed zone that decides what "today" means
func (s *NotificationService) Location() *time.Location {
	return s.location
}

// TargetDate is today in the service's zone shifted by offsetDays
func (s *NotificationService) TargetDate(offsetDays int) dates.Date {
	return dates.Of(s.now().In(s.location)).AddDays(offsetDays)
}

// BuildBatches collects, for every user with a device token, the tasks due on date.
// Each user yields at most one batch; a task with an unreadable date is reported and skipped.
func (s *NotificationService) BuildBatches(ctx context.Context, date dates.Date) (*BuildReport, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	report := &BuildReport{Date: date}
	for _, user := range users {
		if !user.CanReceivePush() {
			continue
		}

		tasks, err := s.listTasks(ctx, user.ID)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("user %s: failed to load tasks: %v", user.ID, err))
			continue
		}

		batch := NotificationBatch{AssigneeID: user.ID, Token: user.FCMToken, Date: date}
		for _, task := range tasks {
			if task.TargetDate.IsNull() {
				continue
			}
			due, err := s.normalizer.Normalize(json.RawMessage(task.TargetDate))
			if err != nil {
				report.InvalidDates = append(report.InvalidDates, fmt.Sprintf("task %s: %v", task.ID, err))
				continue
			}
			if due == date {
				batch.TaskIDs = append(batch.TaskIDs, task.ID)
				batch.TaskTitles = append(batch.TaskTitles, task.Title)
			}
		}

		if len(batch.TaskIDs) > 0 {
			report.Batches = append(report.Batches, batch)
		}
	}

	return report, nil
}

func (s *NotificationService) listTasks(ctx context.Context, userID string) ([]models.Task, error) {
	if s.itemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.itemTimeout)
		defer cancel()
	}
	return s.taskRepo.ListByAssignee(ctx, userID)
}

// RunDailyPass builds every batch for today+offsetDays and then sends them concurrently.
// Delivery failures are collected and never stop the remaining sends.
func (s *NotificationService) RunDailyPass(ctx context.Context, offsetDays int) (*PassResult, error) {
	date := s.TargetDate(offsetDays)

	report, err := s.BuildBatches(ctx, date)
	if err != nil {
		return nil, err
	}
	for _, invalid := range report.InvalidDates {
		log.Printf("Skipping task with invalid target date: %s", invalid)
	}

	result := &PassResult{
		Date:         date,
		Batches:      len(report.Batches),
		InvalidDates: len(report.InvalidDates),
		Errors:       append([]string{}, report.Errors...),
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for _, batch := range report.Batches {
		g.Go(func() error {
			err := s.send(ctx, batch.Message(offsetDays))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("user %s: %v", batch.AssigneeID, err))
				return nil
			}
			result.Sent++
			return nil
		})
	}
	_ = g.Wait()

	log.Printf("Notification pass for %s: %d batches, %d sent, %d errors", date, result.Batches, result.Sent, len(result.Errors))
	return result, nil
}

func (s *NotificationService) send(ctx context.Context, msg push.Message) error {
	if s.itemTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.itemTimeout)
		defer cancel()
	}
	_, err := s.gateway.Send(ctx, msg)
	return err
}
