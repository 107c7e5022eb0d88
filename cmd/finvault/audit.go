package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/finvault/finvault/pkg/audit"
	"github.com/finvault/finvault/pkg/config"
	"github.com/finvault/finvault/pkg/observability"
)

// auditRetention is how long events stay queryable in the database.
// Archived batches in object storage are kept indefinitely.
const auditRetention = 90 * 24 * time.Hour

// buildAuditLogger assembles the audit trail: database always, a file
// destination when configured, and scheduled S3 archival plus retention
// when enabled. Returns nil when auditing is disabled.
func buildAuditLogger(ctx context.Context, startup *logrus.Logger, scheduler *cron.Cron, cfg *config.Config, db *sql.DB, logger *observability.Logger) audit.Logger {
	if !cfg.Audit.Enabled {
		startup.Warn("Audit trail disabled")
		return nil
	}

	dbLogger, err := audit.NewDBLogger(db)
	if err != nil {
		startup.Fatalf("Failed to create audit database logger: %v", err)
	}

	destinations := []audit.Logger{dbLogger}

	if cfg.Audit.FilePath != "" {
		fileLogger, err := audit.NewFileLogger(audit.FileLoggerConfig{
			Path:    cfg.Audit.FilePath,
			MaxSize: 100 * 1024 * 1024,
		})
		if err != nil {
			startup.Fatalf("Failed to create audit file logger: %v", err)
		}
		destinations = append(destinations, fileLogger)
		startup.Infof("Audit events mirrored to %s", cfg.Audit.FilePath)
	}

	if cfg.Audit.S3Enabled {
		archiver, err := audit.NewS3Archiver(ctx, audit.S3ArchiverConfig{
			Bucket:    cfg.Audit.S3Bucket,
			Region:    cfg.Audit.S3Region,
			Endpoint:  cfg.Audit.S3Endpoint,
			AccessKey: cfg.Audit.S3AccessKey,
			SecretKey: cfg.Audit.S3SecretKey,
		})
		if err != nil {
			startup.Fatalf("Failed to create audit archiver: %v", err)
		}

		// Nightly: archive everything past retention, then trim the table
		scheduler.AddFunc("30 0 * * *", func() {
			archiveExpired(dbLogger, archiver, logger)
		})
		startup.Infof("Audit archival to s3://%s enabled", cfg.Audit.S3Bucket)
	}

	if len(destinations) == 1 {
		return dbLogger
	}
	return audit.NewMultiLogger(destinations...)
}

// archiveExpired ships events older than the retention window to object
// storage and deletes them from the database. Deletion is skipped when
// the upload fails so nothing is lost.
func archiveExpired(dbLogger *audit.DBLogger, archiver *audit.S3Archiver, logger *observability.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-auditRetention)
	events, err := dbLogger.Search(ctx, audit.SearchFilter{
		EndTime: &cutoff,
		Limit:   10000,
	})
	if err != nil {
		logger.WithError(err).Error("Failed to load expiring audit events")
		return
	}
	if len(events) == 0 {
		return
	}

	key, err := archiver.Archive(ctx, events, time.Now().UTC())
	if err != nil {
		logger.WithError(err).Error("Failed to archive audit events")
		return
	}

	deleted, err := dbLogger.DeleteBefore(ctx, cutoff)
	if err != nil {
		logger.WithError(err).Error("Failed to trim archived audit events")
		return
	}

	logger.WithField("key", key).
		WithField("archived", len(events)).
		WithField("deleted", deleted).
		Info("Archived expired audit events")
}
