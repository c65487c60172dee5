package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/ports"
)

// ParameterStore implements ports.ParameterStore using in-memory maps
// This is for testing purposes only
type ParameterStore struct {
	fields   map[string]map[string]domain.Value
	statuses map[string]map[string]domain.CalibrationStatus
	mu       sync.RWMutex
}

// NewParameterStore creates a new in-memory parameter store
func NewParameterStore() *ParameterStore {
	return &ParameterStore{
		fields:   make(map[string]map[string]domain.Value),
		statuses: make(map[string]map[string]domain.CalibrationStatus),
	}
}

// GetField reads one parameter
func (s *ParameterStore) GetField(ctx context.Context, entity domain.Entity, field string) (domain.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.fields[entity.Key()][field]
	if !ok {
		return domain.None(), fmt.Errorf("%w: %s of %s", ports.ErrFieldNotFound, field, entity)
	}
	return v, nil
}

// SetField writes one parameter
func (s *ParameterStore) SetField(ctx context.Context, entity domain.Entity, field string, value domain.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.hash(entity)[field] = value
	return nil
}

// FieldExists checks whether a parameter has been written
func (s *ParameterStore) FieldExists(ctx context.Context, entity domain.Entity, field string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.fields[entity.Key()][field]
	return ok, nil
}

// GetFields returns a copy of every parameter of an entity
func (s *ParameterStore) GetFields(ctx context.Context, entity domain.Entity) (map[string]domain.Value, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.Value, len(s.fields[entity.Key()]))
	for k, v := range s.fields[entity.Key()] {
		out[k] = v
	}
	return out, nil
}

// PopulateIfAbsent writes the fields that do not exist yet
func (s *ParameterStore) PopulateIfAbsent(ctx context.Context, entity domain.Entity, fields map[string]domain.Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.hash(entity)
	for k, v := range fields {
		if _, ok := h[k]; !ok {
			h[k] = v
		}
	}
	return nil
}

// GetStatus reads the calibration status of entity for node
func (s *ParameterStore) GetStatus(ctx context.Context, entity domain.Entity, node string) (domain.CalibrationStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.statuses[entity.StatusKey()][node]
	if !ok {
		return "", fmt.Errorf("%w: %s for %s", ports.ErrStatusMissing, node, entity.Name)
	}
	return st, nil
}

// SetStatus writes the calibration status of entity for node
func (s *ParameterStore) SetStatus(ctx context.Context, entity domain.Entity, node string, status domain.CalibrationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statusHash(entity)[node] = status
	return nil
}

// PopulateStatusIfAbsent marks entity not calibrated for node unless a
// status exists
func (s *ParameterStore) PopulateStatusIfAbsent(ctx context.Context, entity domain.Entity, node string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := s.statusHash(entity)
	if _, ok := h[node]; !ok {
		h[node] = domain.StatusNotCalibrated
	}
	return nil
}

func (s *ParameterStore) hash(entity domain.Entity) map[string]domain.Value {
	h, ok := s.fields[entity.Key()]
	if !ok {
		h = make(map[string]domain.Value)
		s.fields[entity.Key()] = h
	}
	return h
}

func (s *ParameterStore) statusHash(entity domain.Entity) map[string]domain.CalibrationStatus {
	h, ok := s.statuses[entity.StatusKey()]
	if !ok {
		h = make(map[string]domain.CalibrationStatus)
		s.statuses[entity.StatusKey()] = h
	}
	return h
}
