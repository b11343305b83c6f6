package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/ordercore-backend/pkg/db"
	"github.com/angelmondragon/ordercore-backend/pkg/logger"
)

const (
	OutboxRetentionJobName     = "outbox-retention"
	NotificationCleanupJobName = "notification-cleanup"
)

// PurgeRecorder is told how many rows a purge removed.
type PurgeRecorder interface {
	AddPurged(job string, rows int64)
}

type purgeFunc func(ctx context.Context, cutoff time.Time) (int64, error)

// purgeJob deletes rows older than now-retention through purge.
type purgeJob struct {
	name      string
	retention time.Duration
	purge     purgeFunc
	recorder  PurgeRecorder
	logg      *logger.Logger
	now       func() time.Time
}

func (j *purgeJob) Name() string { return j.name }

func (j *purgeJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.purge(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}
	if j.recorder != nil {
		j.recorder.AddPurged(j.name, deleted)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "purge complete")
	return nil
}

func newPurgeJob(name string, retention time.Duration, purge purgeFunc, recorder PurgeRecorder, logg *logger.Logger) (Job, error) {
	if logg == nil {
		return nil, errors.New("logger required")
	}
	if retention <= 0 {
		return nil, fmt.Errorf("%s retention must be positive", name)
	}
	return &purgeJob{
		name:      name,
		retention: retention,
		purge:     purge,
		recorder:  recorder,
		logg:      logg,
		now:       time.Now,
	}, nil
}

type outboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

// NewOutboxRetentionJob removes published outbox rows older than retention.
func NewOutboxRetentionJob(tx db.TxRunner, repo outboxPurger, retention time.Duration, recorder PurgeRecorder, logg *logger.Logger) (Job, error) {
	if tx == nil || repo == nil {
		return nil, errors.New("outbox retention needs a tx runner and repository")
	}
	return newPurgeJob(OutboxRetentionJobName, retention, func(ctx context.Context, cutoff time.Time) (int64, error) {
		var deleted int64
		err := tx.WithTx(ctx, func(tx *gorm.DB) error {
			n, err := repo.DeletePublishedBefore(ctx, tx, cutoff)
			deleted = n
			return err
		})
		return deleted, err
	}, recorder, logg)
}

type notificationPurger interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewNotificationCleanupJob removes notifications read longer ago than retention.
func NewNotificationCleanupJob(repo notificationPurger, retention time.Duration, recorder PurgeRecorder, logg *logger.Logger) (Job, error) {
	if repo == nil {
		return nil, errors.New("notification cleanup needs a repository")
	}
	return newPurgeJob(NotificationCleanupJobName, retention, repo.DeleteReadBefore, recorder, logg)
}
