package passbook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/information-sharing-networks/passbook/internal/logger"
)

// Store persists passes and registrations.
//
// Implementations must make Register and Deregister atomic per (pass, device): concurrent
// registrations for the same pair create exactly one Registration.
type Store interface {
	// CreatePass stores a new active pass
	CreatePass(ctx context.Context, origin OriginRef, authenticationToken string) (*Pass, error)

	// GetPass returns ErrPassNotFound when there is no such pass
	GetPass(ctx context.Context, id int64) (*Pass, error)

	// SetPassActive activates or deactivates a pass
	SetPassActive(ctx context.Context, id int64, active bool) (*Pass, error)

	// DeletePass removes a pass and its registrations
	DeletePass(ctx context.Context, id int64) error

	// Register creates the registration unless one exists for (passID, device).
	// created is false when the registration already existed; its push token is left unchanged.
	Register(ctx context.Context, passID int64, device, pushToken string) (created bool, err error)

	// Deregister removes the registration, returning ErrRegistrationNotFound if there is none
	Deregister(ctx context.Context, passID int64, device string) error

	// ActivePassesForDevice returns the active passes the device is registered for, ordered by ID
	ActivePassesForDevice(ctx context.Context, device string) ([]Pass, error)

	// ListRegistrations returns the registrations for a pass
	ListRegistrations(ctx context.Context, passID int64) ([]Registration, error)

	// RegistrationsForOrigin returns the registrations of the active passes for an origin record.
	// These are the devices to notify when the origin record changes.
	RegistrationsForOrigin(ctx context.Context, origin OriginRef) ([]Registration, error)

	// Ping checks the store is reachable
	Ping(ctx context.Context) error
}

// RegisterResult is the outcome of a device registration
type RegisterResult int

const (
	// RegisterCreated means a new registration was stored
	RegisterCreated RegisterResult = iota + 1

	// RegisterNoOp means the device was already registered for the pass
	RegisterNoOp
)

// Service implements the pass and registration operations on top of a Store
type Service struct {
	store    Store
	registry *OriginRegistry
}

// NewService creates a service. The registry limits which origin types passes can be created for.
func NewService(store Store, registry *OriginRegistry) *Service {
	return &Service{store: store, registry: registry}
}

// Store returns the underlying store
func (s *Service) Store() Store {
	return s.store
}

// CreatePass creates an active pass for an origin record with a new authentication token
func (s *Service) CreatePass(ctx context.Context, origin OriginRef) (*Pass, error) {
	if strings.TrimSpace(origin.ID) == "" {
		return nil, NewBadRequestError("origin id is required")
	}
	if !s.registry.Has(origin.Type) {
		return nil, WrapBadRequestError(ErrUnknownOriginType, fmt.Sprintf("origin type %q is not allowed", origin.Type))
	}

	pass, err := s.store.CreatePass(ctx, origin, NewAuthenticationToken())
	if err != nil {
		return nil, WrapInternalError(err, "failed to create pass")
	}

	logger.ContextRequestLogger(ctx).Info("pass created",
		slog.Int64("pass_id", pass.ID),
		slog.String("origin", origin.String()),
	)
	return pass, nil
}

// RegisterDevice registers a device for push updates of a pass.
// Registering an already registered device is a no-op and does not change the push token.
func (s *Service) RegisterDevice(ctx context.Context, pass *Pass, device, pushToken string) (RegisterResult, error) {
	if device == "" {
		return 0, NewBadRequestError("device library identifier is required")
	}
	if pushToken == "" {
		return 0, NewBadRequestError("push token is required")
	}

	created, err := s.store.Register(ctx, pass.ID, device, pushToken)
	if err != nil {
		return 0, WrapInternalError(err, "failed to register device")
	}

	if created {
		return RegisterCreated, nil
	}
	return RegisterNoOp, nil
}

// DeregisterDevice removes a device registration.
// It returns ErrRegistrationNotFound when the device is not registered for the pass.
func (s *Service) DeregisterDevice(ctx context.Context, pass *Pass, device string) error {
	err := s.store.Deregister(ctx, pass.ID, device)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRegistrationNotFound) {
		return err
	}
	return WrapInternalError(err, "failed to deregister device")
}
