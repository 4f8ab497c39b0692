package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-memdb"
	"github.com/information-sharing-networks/passbook/internal/passbook"
)

const (
	tablePass         = "pass"
	tableRegistration = "registration"

	indexID         = "id"
	indexOrigin     = "origin"
	indexPass       = "pass_id"
	indexDevice     = "device"
	indexPassDevice = "pass_device"
)

// passRecord and registrationRecord are the stored forms. memdb indexes need flat fields.
type passRecord struct {
	ID                  int64
	OriginType          string
	OriginID            string
	AuthenticationToken string
	Active              bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (r *passRecord) toPass() passbook.Pass {
	return passbook.Pass{
		ID:                  r.ID,
		Origin:              passbook.OriginRef{Type: r.OriginType, ID: r.OriginID},
		AuthenticationToken: r.AuthenticationToken,
		Active:              r.Active,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}
}

type registrationRecord struct {
	ID                      int64
	PassID                  int64
	DeviceLibraryIdentifier string
	PushToken               string
	CreatedAt               time.Time
}

func (r *registrationRecord) toRegistration() passbook.Registration {
	return passbook.Registration{
		ID:                      r.ID,
		PassID:                  r.PassID,
		DeviceLibraryIdentifier: r.DeviceLibraryIdentifier,
		PushToken:               r.PushToken,
		CreatedAt:               r.CreatedAt,
	}
}

func memorySchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tablePass: {
				Name: tablePass,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
					indexOrigin: {
						Name: indexOrigin,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "OriginType"},
								&memdb.StringFieldIndex{Field: "OriginID"},
							},
						},
					},
				},
			},
			tableRegistration: {
				Name: tableRegistration,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.IntFieldIndex{Field: "ID"},
					},
					indexPassDevice: {
						Name:   indexPassDevice,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.IntFieldIndex{Field: "PassID"},
								&memdb.StringFieldIndex{Field: "DeviceLibraryIdentifier"},
							},
						},
					},
					indexPass: {
						Name:    indexPass,
						Indexer: &memdb.IntFieldIndex{Field: "PassID"},
					},
					indexDevice: {
						Name:    indexDevice,
						Indexer: &memdb.StringFieldIndex{Field: "DeviceLibraryIdentifier"},
					},
				},
			},
		},
	}
}

// MemoryStore is an in-memory passbook.Store
type MemoryStore struct {
	db                 *memdb.MemDB
	nextPassID         atomic.Int64
	nextRegistrationID atomic.Int64

	// now is replaceable in tests
	now func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() (*MemoryStore, error) {
	db, err := memdb.NewMemDB(memorySchema())
	if err != nil {
		return nil, fmt.Errorf("failed to create memdb: %w", err)
	}
	return &MemoryStore{db: db, now: time.Now}, nil
}

func (s *MemoryStore) CreatePass(ctx context.Context, origin passbook.OriginRef, authenticationToken string) (*passbook.Pass, error) {
	now := s.now().UTC()
	record := &passRecord{
		ID:                  s.nextPassID.Add(1),
		OriginType:          origin.Type,
		OriginID:            origin.ID,
		AuthenticationToken: authenticationToken,
		Active:              true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(tablePass, record); err != nil {
		return nil, fmt.Errorf("failed to insert pass: %w", err)
	}
	txn.Commit()

	pass := record.toPass()
	return &pass, nil
}

func (s *MemoryStore) GetPass(ctx context.Context, id int64) (*passbook.Pass, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	record, err := getPassRecord(txn, id)
	if err != nil {
		return nil, err
	}
	pass := record.toPass()
	return &pass, nil
}

func (s *MemoryStore) SetPassActive(ctx context.Context, id int64, active bool) (*passbook.Pass, error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	existing, err := getPassRecord(txn, id)
	if err != nil {
		return nil, err
	}

	// stored objects must not be modified in place
	updated := *existing
	updated.Active = active
	updated.UpdatedAt = s.now().UTC()

	if err := txn.Insert(tablePass, &updated); err != nil {
		return nil, fmt.Errorf("failed to update pass: %w", err)
	}
	txn.Commit()

	pass := updated.toPass()
	return &pass, nil
}

func (s *MemoryStore) DeletePass(ctx context.Context, id int64) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	record, err := getPassRecord(txn, id)
	if err != nil {
		return err
	}
	if _, err := txn.DeleteAll(tableRegistration, indexPass, id); err != nil {
		return fmt.Errorf("failed to delete registrations: %w", err)
	}
	if err := txn.Delete(tablePass, record); err != nil {
		return fmt.Errorf("failed to delete pass: %w", err)
	}
	txn.Commit()
	return nil
}

func (s *MemoryStore) Register(ctx context.Context, passID int64, device, pushToken string) (bool, error) {
	txn := s.db.Txn(true)
	defer txn.Abort()

	if _, err := getPassRecord(txn, passID); err != nil {
		return false, err
	}

	existing, err := txn.First(tableRegistration, indexPassDevice, passID, device)
	if err != nil {
		return false, fmt.Errorf("failed to look up registration: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	record := &registrationRecord{
		ID:                      s.nextRegistrationID.Add(1),
		PassID:                  passID,
		DeviceLibraryIdentifier: device,
		PushToken:               pushToken,
		CreatedAt:               s.now().UTC(),
	}
	if err := txn.Insert(tableRegistration, record); err != nil {
		return false, fmt.Errorf("failed to insert registration: %w", err)
	}
	txn.Commit()
	return true, nil
}

func (s *MemoryStore) Deregister(ctx context.Context, passID int64, device string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()

	existing, err := txn.First(tableRegistration, indexPassDevice, passID, device)
	if err != nil {
		return fmt.Errorf("failed to look up registration: %w", err)
	}
	if existing == nil {
		return passbook.ErrRegistrationNotFound
	}
	if err := txn.Delete(tableRegistration, existing); err != nil {
		return fmt.Errorf("failed to delete registration: %w", err)
	}
	txn.Commit()
	return nil
}

func (s *MemoryStore) ActivePassesForDevice(ctx context.Context, device string) ([]passbook.Pass, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableRegistration, indexDevice, device)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}

	var passes []passbook.Pass
	for obj := it.Next(); obj != nil; obj = it.Next() {
		reg := obj.(*registrationRecord)
		record, err := getPassRecord(txn, reg.PassID)
		if err != nil {
			return nil, err
		}
		if record.Active {
			passes = append(passes, record.toPass())
		}
	}

	slices.SortFunc(passes, func(a, b passbook.Pass) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return passes, nil
}

func (s *MemoryStore) ListRegistrations(ctx context.Context, passID int64) ([]passbook.Registration, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	if _, err := getPassRecord(txn, passID); err != nil {
		return nil, err
	}
	return registrationsForPass(txn, passID)
}

func (s *MemoryStore) RegistrationsForOrigin(ctx context.Context, origin passbook.OriginRef) ([]passbook.Registration, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tablePass, indexOrigin, origin.Type, origin.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list passes for origin: %w", err)
	}

	var registrations []passbook.Registration
	for obj := it.Next(); obj != nil; obj = it.Next() {
		record := obj.(*passRecord)
		if !record.Active {
			continue
		}
		regs, err := registrationsForPass(txn, record.ID)
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, regs...)
	}

	slices.SortFunc(registrations, func(a, b passbook.Registration) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return registrations, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func getPassRecord(txn *memdb.Txn, id int64) (*passRecord, error) {
	obj, err := txn.First(tablePass, indexID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up pass: %w", err)
	}
	if obj == nil {
		return nil, passbook.ErrPassNotFound
	}
	return obj.(*passRecord), nil
}

func registrationsForPass(txn *memdb.Txn, passID int64) ([]passbook.Registration, error) {
	it, err := txn.Get(tableRegistration, indexPass, passID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}

	var registrations []passbook.Registration
	for obj := it.Next(); obj != nil; obj = it.Next() {
		registrations = append(registrations, obj.(*registrationRecord).toRegistration())
	}
	slices.SortFunc(registrations, func(a, b passbook.Registration) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return registrations, nil
}

var _ passbook.Store = (*MemoryStore)(nil)
