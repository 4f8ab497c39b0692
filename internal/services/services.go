package services

import (
	"context"
	"log/slog"

	"github.com/information-sharing-networks/passbook/internal/config"
	"github.com/information-sharing-networks/passbook/internal/database"
	"github.com/information-sharing-networks/passbook/internal/passbook"
)

// Services aggregates the external service integrations used by the passbook server.
type Services struct {
	Origins    *passbook.OriginRegistry
	DeviceLogs LogSink
}

// NewServices creates service implementations based on configuration.
// This is the single entry point for initializing all external service integrations.
//
// queries is only used by the postgres device log sink and may be nil when the memory store is configured.
func NewServices(ctx context.Context, cfg *config.ServerEnvironment, queries *database.Queries, logger *slog.Logger) (*Services, error) {
	origins, err := NewOriginRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}

	sink, err := NewLogSink(ctx, cfg, queries, logger)
	if err != nil {
		return nil, err
	}

	return &Services{
		Origins:    origins,
		DeviceLogs: sink,
	}, nil
}
