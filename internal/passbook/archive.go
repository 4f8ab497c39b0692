package passbook

// archive.go builds signed pass archives from origin content.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/information-sharing-networks/passbook/internal/logger"
	"github.com/information-sharing-networks/passbook/internal/pkpass"
)

const (
	// ArchiveFileName is the download file name of a pass archive
	ArchiveFileName = "pass.pkpass"

	// DefaultSigningTimeout is used when ArchiveBuilderConfig.SigningTimeout is zero
	DefaultSigningTimeout = 10 * time.Second
)

// Archive is a signed pass archive ready to send
type Archive struct {
	Data         []byte
	ContentType  string
	FileName     string
	LastModified time.Time
}

// ArchiveBuilderConfig configures an ArchiveBuilder
type ArchiveBuilderConfig struct {
	// WebServiceURL is written into every pass so devices know where to register
	WebServiceURL string

	// Policy is applied to the origin content before signing
	Policy pkpass.Policy

	// SigningTimeout bounds the time spent signing one archive
	SigningTimeout time.Duration

	// Cache is optional. When set, archives are reused until the origin's last modified time changes.
	Cache *ArchiveCache
}

// ArchiveBuilder assembles and signs pass archives
type ArchiveBuilder struct {
	registry *OriginRegistry
	signer   pkpass.Signer
	cfg      ArchiveBuilderConfig
}

// NewArchiveBuilder creates an archive builder
func NewArchiveBuilder(registry *OriginRegistry, signer pkpass.Signer, cfg ArchiveBuilderConfig) *ArchiveBuilder {
	if cfg.SigningTimeout <= 0 {
		cfg.SigningTimeout = DefaultSigningTimeout
	}
	return &ArchiveBuilder{registry: registry, signer: signer, cfg: cfg}
}

// Build returns the signed archive for a pass.
//
// The origin content is completed with the pass's serial number, the web service URL and the
// pass's authentication token. Content that fails validation is returned as an ErrCodeValidation error.
func (b *ArchiveBuilder) Build(ctx context.Context, pass *Pass) (*Archive, error) {
	reqLogger := logger.ContextRequestLogger(ctx)

	provider, err := b.registry.Provider(pass.Origin.Type)
	if err != nil {
		return nil, WrapInternalError(err, "no content provider for pass")
	}

	lastModified, err := provider.LastModified(ctx, pass.Origin.ID)
	if err != nil {
		return nil, wrapProviderError(err, pass)
	}

	if archive, ok := b.cfg.Cache.Get(pass.ID, lastModified); ok {
		reqLogger.Debug("archive served from cache", slog.Int64("pass_id", pass.ID))
		return archive, nil
	}

	content, err := provider.PassContent(ctx, pass.Origin.ID)
	if err != nil {
		return nil, wrapProviderError(err, pass)
	}
	if content == nil {
		return nil, NewInternalError(fmt.Sprintf("origin %s returned no content", pass.Origin))
	}

	content.SerialNumber = pass.SerialNumber()
	content.WebServiceURL = b.cfg.WebServiceURL
	content.AuthenticationToken = pass.AuthenticationToken

	if err := pkpass.Validate(content, b.cfg.Policy); err != nil {
		return nil, WrapValidationError(err, fmt.Sprintf("origin %s produced invalid pass content", pass.Origin))
	}

	signCtx, cancel := context.WithTimeout(ctx, b.cfg.SigningTimeout)
	defer cancel()

	var buf bytes.Buffer
	if err := pkpass.WriteArchive(signCtx, &buf, content, b.signer); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("signing pass %d timed out: %w", pass.ID, err)
		}
		return nil, WrapInternalError(err, fmt.Sprintf("failed to build archive for pass %d", pass.ID))
	}

	archive := &Archive{
		Data:         buf.Bytes(),
		ContentType:  pkpass.ContentType,
		FileName:     ArchiveFileName,
		LastModified: lastModified,
	}
	b.cfg.Cache.Set(pass.ID, lastModified, archive)

	reqLogger.Info("archive built",
		slog.Int64("pass_id", pass.ID),
		slog.Int("bytes", len(archive.Data)),
	)
	return archive, nil
}

// LastModified returns the pass's last update time
func (b *ArchiveBuilder) LastModified(ctx context.Context, pass *Pass) (time.Time, error) {
	t, err := b.registry.LastUpdate(ctx, pass)
	if err != nil {
		return time.Time{}, wrapProviderError(err, pass)
	}
	return t, nil
}

// Invalidate drops any cached archives for a pass
func (b *ArchiveBuilder) Invalidate(passID int64) {
	b.cfg.Cache.Invalidate(passID)
}

func wrapProviderError(err error, pass *Pass) error {
	if errors.Is(err, ErrOriginNotFound) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("pass %d: %w", pass.ID, err)
	}
	return WrapInternalError(err, fmt.Sprintf("content provider failed for origin %s", pass.Origin))
}
