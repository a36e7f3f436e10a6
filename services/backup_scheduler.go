// services/backup_scheduler.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Dosada05/swiss-tournament/storage"
	"github.com/go-co-op/gocron/v2"
)

const backupTimeout = 30 * time.Second

// BackupKey - ключ снимка турнира в объектном хранилище.
func BackupKey(slug string, at time.Time) string {
	return fmt.Sprintf("backups/%s/%s.json", slug, at.UTC().Format("20060102T150405Z"))
}

// BackupSnapshot сохраняет текущее состояние турнира в объектное хранилище.
func BackupSnapshot(ctx context.Context, svc TournamentService, store storage.ObjectStorage, slug string, at time.Time) (*storage.UploadResult, error) {
	state, err := svc.State(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return store.Upload(ctx, BackupKey(slug, at), "application/json", bytes.NewReader(data))
}

// StartBackupScheduler запускает периодическое резервное копирование. Вызывающий
// должен остановить планировщик через Shutdown.
func StartBackupScheduler(svc TournamentService, store storage.ObjectStorage, slug string, interval time.Duration, logger *slog.Logger) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create backup scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
			defer cancel()

			result, err := BackupSnapshot(ctx, svc, store, slug, time.Now())
			switch {
			case errors.Is(err, ErrTournamentNotFound):
				logger.Debug("backup skipped: no tournament yet")
			case err != nil:
				logger.Error("backup failed", slog.Any("error", err))
			default:
				logger.Info("tournament backed up", slog.String("key", result.Key))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule backup job: %w", err)
	}

	sched.Start()
	logger.Info("backup scheduler started", slog.Duration("interval", interval))
	return sched, nil
}
