package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/information-sharing-networks/passbook/internal/config"
	"github.com/information-sharing-networks/passbook/internal/database"
	"github.com/information-sharing-networks/passbook/internal/logger"
	"github.com/jackc/pgx/v5/pgtype"
)

// DeviceLogBatch is one POST to the log endpoint
type DeviceLogBatch struct {
	// Version is the protocol version from the request path
	Version    string    `json:"version"`
	ReceivedAt time.Time `json:"receivedAt"`
	RemoteAddr string    `json:"remoteAddr"`
	Logs       []string  `json:"logs"`
}

// LogSink stores device log messages
type LogSink interface {
	Write(ctx context.Context, batch DeviceLogBatch) error
}

// NewLogSink creates the sinks listed in DEVICE_LOG_SINKS.
// When more than one sink is configured every batch is written to all of them.
func NewLogSink(ctx context.Context, cfg *config.ServerEnvironment, queries *database.Queries, logger *slog.Logger) (LogSink, error) {
	sinks := make([]LogSink, 0, len(cfg.DeviceLogSinks))

	for _, name := range cfg.DeviceLogSinks {
		switch name {
		case "console":
			sinks = append(sinks, &ConsoleLogSink{})
		case "postgres":
			if queries == nil {
				return nil, fmt.Errorf("the postgres device log sink needs a database connection")
			}
			sinks = append(sinks, NewPostgresLogSink(queries))
		case "s3":
			s3Sink, err := NewS3LogSink(ctx, S3Config{
				Endpoint:  cfg.S3Endpoint,
				Region:    cfg.S3Region,
				Bucket:    cfg.S3Bucket,
				AccessKey: cfg.S3AccessKey,
				SecretKey: cfg.S3SecretKey,
				Prefix:    cfg.S3Prefix,
			})
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, s3Sink)
		default:
			return nil, fmt.Errorf("unsupported device log sink: %s", name)
		}
		logger.Info("device log sink enabled", slog.String("sink", name))
	}

	switch len(sinks) {
	case 0:
		return &ConsoleLogSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		return MultiLogSink(sinks), nil
	}
}

// ConsoleLogSink writes each message to the request logger
type ConsoleLogSink struct{}

func (s *ConsoleLogSink) Write(ctx context.Context, batch DeviceLogBatch) error {
	reqLogger := logger.ContextRequestLogger(ctx)
	for _, msg := range batch.Logs {
		reqLogger.Info("device log",
			slog.String("protocol_version", batch.Version),
			slog.String("remote_addr", batch.RemoteAddr),
			slog.String("message", msg),
		)
	}
	return nil
}

// PostgresLogSink stores messages in the device_logs table, one row per message
type PostgresLogSink struct {
	queries *database.Queries
}

// NewPostgresLogSink creates a sink using queries
func NewPostgresLogSink(queries *database.Queries) *PostgresLogSink {
	return &PostgresLogSink{queries: queries}
}

func (s *PostgresLogSink) Write(ctx context.Context, batch DeviceLogBatch) error {
	if len(batch.Logs) == 0 {
		return nil
	}
	err := s.queries.CreateDeviceLogs(ctx, database.CreateDeviceLogsParams{
		ReceivedAt:      pgtype.Timestamptz{Time: batch.ReceivedAt, Valid: true},
		ProtocolVersion: batch.Version,
		RemoteAddr:      batch.RemoteAddr,
		Messages:        batch.Logs,
	})
	if err != nil {
		return fmt.Errorf("failed to insert device logs: %w", err)
	}
	return nil
}

// MultiLogSink writes every batch to all of its sinks.
// A failing sink does not stop the others; the errors are joined.
type MultiLogSink []LogSink

func (m MultiLogSink) Write(ctx context.Context, batch DeviceLogBatch) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Write(ctx, batch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
