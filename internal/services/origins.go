package services

import (
	"fmt"
	"log/slog"

	"github.com/information-sharing-networks/passbook/internal/config"
	"github.com/information-sharing-networks/passbook/internal/passbook"
)

// NewOriginRegistry builds the origin registry from ORIGIN_TYPES.
//
// Only the listed origin types can have passes; each is served by the configured provider.
func NewOriginRegistry(cfg *config.ServerEnvironment, logger *slog.Logger) (*passbook.OriginRegistry, error) {
	originTypes, err := cfg.ParsedOriginTypes()
	if err != nil {
		return nil, err
	}

	registry := passbook.NewOriginRegistry()

	var static map[string]*StaticOriginProvider

	for _, ot := range originTypes {
		var provider passbook.ContentProvider

		switch ot.Provider {
		case "http":
			provider = NewHTTPOriginProvider(HTTPOriginConfig{
				BaseURL:    cfg.OriginServiceBaseURL,
				OriginType: ot.Name,
				Timeout:    cfg.OriginServiceTimeout,
				Retries:    cfg.OriginServiceRetries,
			}, logger)

		case "static":
			if static == nil {
				static, err = LoadStaticOrigins(cfg.OriginStaticPath)
				if err != nil {
					return nil, err
				}
			}
			p, ok := static[ot.Name]
			if !ok {
				// an empty provider: every lookup is ErrOriginNotFound
				p = &StaticOriginProvider{originType: ot.Name}
			}
			provider = p

		default:
			return nil, fmt.Errorf("unsupported origin provider %q for origin type %q", ot.Provider, ot.Name)
		}

		if err := registry.Register(ot.Name, provider); err != nil {
			return nil, err
		}
		logger.Info("origin type registered",
			slog.String("origin_type", ot.Name),
			slog.String("provider", ot.Provider),
		)
	}

	return registry, nil
}
