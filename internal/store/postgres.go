package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/information-sharing-networks/passbook/internal/database"
	"github.com/information-sharing-networks/passbook/internal/passbook"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgForeignKeyViolation is returned when a registration references a pass that no longer exists
const pgForeignKeyViolation = "23503"

// PostgresStore is a passbook.Store backed by postgres
type PostgresStore struct {
	pool    *pgxpool.Pool
	queries *database.Queries
}

// NewPostgresStore creates a store using the pool. The schema must already be migrated.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, queries: database.New(pool)}
}

func passFromRow(row database.Pass) *passbook.Pass {
	return &passbook.Pass{
		ID:                  row.ID,
		Origin:              passbook.OriginRef{Type: row.OriginType, ID: row.OriginID},
		AuthenticationToken: row.AuthenticationToken,
		Active:              row.Active,
		CreatedAt:           row.CreatedAt.Time,
		UpdatedAt:           row.UpdatedAt.Time,
	}
}

func registrationFromRow(row database.Registration) passbook.Registration {
	return passbook.Registration{
		ID:                      row.ID,
		PassID:                  row.PassID,
		DeviceLibraryIdentifier: row.DeviceLibraryIdentifier,
		PushToken:               row.PushToken,
		CreatedAt:               row.CreatedAt.Time,
	}
}

func (s *PostgresStore) CreatePass(ctx context.Context, origin passbook.OriginRef, authenticationToken string) (*passbook.Pass, error) {
	row, err := s.queries.CreatePass(ctx, database.CreatePassParams{
		OriginType:          origin.Type,
		OriginID:            origin.ID,
		AuthenticationToken: authenticationToken,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert pass: %w", err)
	}
	return passFromRow(row), nil
}

func (s *PostgresStore) GetPass(ctx context.Context, id int64) (*passbook.Pass, error) {
	row, err := s.queries.GetPass(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, passbook.ErrPassNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pass: %w", err)
	}
	return passFromRow(row), nil
}

func (s *PostgresStore) SetPassActive(ctx context.Context, id int64, active bool) (*passbook.Pass, error) {
	row, err := s.queries.SetPassActive(ctx, database.SetPassActiveParams{ID: id, Active: active})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, passbook.ErrPassNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update pass: %w", err)
	}
	return passFromRow(row), nil
}

// DeletePass removes the pass. Registrations are removed by the ON DELETE CASCADE constraint.
func (s *PostgresStore) DeletePass(ctx context.Context, id int64) error {
	n, err := s.queries.DeletePass(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete pass: %w", err)
	}
	if n == 0 {
		return passbook.ErrPassNotFound
	}
	return nil
}

// Register inserts the registration. When the (pass, device) pair already exists the insert does
// nothing and no row is returned.
func (s *PostgresStore) Register(ctx context.Context, passID int64, device, pushToken string) (bool, error) {
	_, err := s.queries.CreateRegistration(ctx, database.CreateRegistrationParams{
		PassID:                  passID,
		DeviceLibraryIdentifier: device,
		PushToken:               pushToken,
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return false, passbook.ErrPassNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert registration: %w", err)
	}
	return true, nil
}

func (s *PostgresStore) Deregister(ctx context.Context, passID int64, device string) error {
	n, err := s.queries.DeleteRegistration(ctx, database.DeleteRegistrationParams{
		PassID:                  passID,
		DeviceLibraryIdentifier: device,
	})
	if err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	if n == 0 {
		return passbook.ErrRegistrationNotFound
	}
	return nil
}

func (s *PostgresStore) ActivePassesForDevice(ctx context.Context, device string) ([]passbook.Pass, error) {
	rows, err := s.queries.ListActivePassesForDevice(ctx, device)
	if err != nil {
		return nil, fmt.Errorf("failed to list passes for device: %w", err)
	}
	passes := make([]passbook.Pass, 0, len(rows))
	for _, row := range rows {
		passes = append(passes, *passFromRow(row))
	}
	return passes, nil
}

func (s *PostgresStore) ListRegistrations(ctx context.Context, passID int64) ([]passbook.Registration, error) {
	if _, err := s.GetPass(ctx, passID); err != nil {
		return nil, err
	}
	rows, err := s.queries.ListRegistrationsForPass(ctx, passID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	registrations := make([]passbook.Registration, 0, len(rows))
	for _, row := range rows {
		registrations = append(registrations, registrationFromRow(row))
	}
	return registrations, nil
}

func (s *PostgresStore) RegistrationsForOrigin(ctx context.Context, origin passbook.OriginRef) ([]passbook.Registration, error) {
	rows, err := s.queries.ListRegistrationsForOrigin(ctx, database.ListRegistrationsForOriginParams{
		OriginType: origin.Type,
		OriginID:   origin.ID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations for origin: %w", err)
	}
	registrations := make([]passbook.Registration, 0, len(rows))
	for _, row := range rows {
		registrations = append(registrations, registrationFromRow(row))
	}
	return registrations, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Pool returns the connection pool
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

var _ passbook.Store = (*PostgresStore)(nil)
