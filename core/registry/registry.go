// Package registry holds the facility profiles the engine evaluates.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kilianp07/outagewatch/core/model"
)

// Filter narrows List results. Empty fields match everything.
type Filter struct {
	Province     string
	Municipality string
	Area         string
}

func (f Filter) match(p model.FacilityProfile) bool {
	if f.Province != "" && !strings.EqualFold(p.Facility.Province, f.Province) {
		return false
	}
	k := p.Facility.Area.Normalize()
	if f.Municipality != "" && k.Municipality != strings.ToLower(strings.TrimSpace(f.Municipality)) {
		return false
	}
	if f.Area != "" && k.Area != strings.ToLower(strings.TrimSpace(f.Area)) {
		return false
	}
	return true
}

// Registry provides read access to facility profiles.
type Registry interface {
	Get(id string) (model.FacilityProfile, error)
	List(Filter) []model.FacilityProfile
}

// Store is a Registry that can be updated.
type Store interface {
	Registry
	Set(model.FacilityProfile) error
	Replace([]model.FacilityProfile) error
	SetBackup(id string, status model.BackupPowerStatus) error
}

// MemoryStore keeps profiles in a map guarded by a RWMutex.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]model.FacilityProfile
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]model.FacilityProfile{}}
}

func (s *MemoryStore) Get(id string) (model.FacilityProfile, error) {
	s.mu.RLock()
	p, ok := s.data[id]
	s.mu.RUnlock()
	if !ok {
		return model.FacilityProfile{}, fmt.Errorf("facility %q: %w", id, model.ErrNotFound)
	}
	return clone(p), nil
}

func (s *MemoryStore) Set(p model.FacilityProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.data[p.Facility.ID] = clone(p)
	s.mu.Unlock()
	return nil
}

// Replace swaps the whole content. Nothing changes if any profile is invalid.
func (s *MemoryStore) Replace(list []model.FacilityProfile) error {
	next := make(map[string]model.FacilityProfile, len(list))
	for _, p := range list {
		if err := p.Validate(); err != nil {
			return err
		}
		next[p.Facility.ID] = clone(p)
	}
	s.mu.Lock()
	s.data = next
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SetBackup(id string, status model.BackupPowerStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data[id]
	if !ok {
		return fmt.Errorf("facility %q: %w", id, model.ErrNotFound)
	}
	p.Backup = status
	s.data[id] = p
	return nil
}

// List returns matching profiles sorted by facility ID.
func (s *MemoryStore) List(f Filter) []model.FacilityProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]model.FacilityProfile, 0, len(s.data))
	for _, p := range s.data {
		if f.match(p) {
			res = append(res, clone(p))
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Facility.ID < res[j].Facility.ID })
	return res
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func clone(p model.FacilityProfile) model.FacilityProfile {
	p.Equipment = append([]model.CriticalEquipment(nil), p.Equipment...)
	return p
}
