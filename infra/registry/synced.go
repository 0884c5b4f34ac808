package registry

import (
	"context"
	"fmt"

	"github.com/kilianp07/outagewatch/core/logger"
	"github.com/kilianp07/outagewatch/core/model"
	coreregistry "github.com/kilianp07/outagewatch/core/registry"
)

// Persister is the storage used behind a SyncedStore.
type Persister interface {
	Load(ctx context.Context) ([]model.FacilityProfile, error)
	Upsert(ctx context.Context, p model.FacilityProfile) error
	UpdateBackup(ctx context.Context, id string, status model.BackupPowerStatus) error
}

// SyncedStore serves queries from memory and writes through to a Persister.
type SyncedStore struct {
	*coreregistry.MemoryStore
	db  Persister
	log logger.Logger
}

// NewSyncedStore loads every profile from db into memory.
func NewSyncedStore(ctx context.Context, db Persister, log logger.Logger) (*SyncedStore, error) {
	s := &SyncedStore{MemoryStore: coreregistry.NewMemoryStore(), db: db, log: log}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Refresh reloads the in-memory copy from storage.
func (s *SyncedStore) Refresh(ctx context.Context) error {
	list, err := s.db.Load(ctx)
	if err != nil {
		return err
	}
	if err := s.MemoryStore.Replace(list); err != nil {
		return fmt.Errorf("stored facilities: %w", err)
	}
	if s.log != nil {
		s.log.Infof("facility registry loaded: %d profiles", len(list))
	}
	return nil
}

// Set persists p, then updates memory.
func (s *SyncedStore) Set(p model.FacilityProfile) error {
	if err := s.db.Upsert(context.Background(), p); err != nil {
		return err
	}
	return s.MemoryStore.Set(p)
}

// Replace upserts every profile and swaps the in-memory content.
func (s *SyncedStore) Replace(list []model.FacilityProfile) error {
	for _, p := range list {
		if err := s.db.Upsert(context.Background(), p); err != nil {
			return err
		}
	}
	return s.MemoryStore.Replace(list)
}

// SetBackup persists the status change, then updates memory.
func (s *SyncedStore) SetBackup(id string, status model.BackupPowerStatus) error {
	if err := s.db.UpdateBackup(context.Background(), id, status); err != nil {
		return err
	}
	return s.MemoryStore.SetBackup(id, status)
}
