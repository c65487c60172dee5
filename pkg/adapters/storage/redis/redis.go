package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aescanero/autocal/pkg/domain"
	"github.com/aescanero/autocal/pkg/ports"
)

// ParameterStore keeps device parameters in one hash per entity
// ("transmons:q06", "couplers:q06_q07") and calibration statuses in one
// hash per entity keyed by node ("cs:q06").
type ParameterStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewParameterStore creates a new Redis parameter store
func NewParameterStore(client *redis.Client, logger *zap.Logger) *ParameterStore {
	return &ParameterStore{
		client: client,
		logger: logger,
	}
}

// GetField reads one parameter
func (s *ParameterStore) GetField(ctx context.Context, entity domain.Entity, field string) (domain.Value, error) {
	raw, err := s.client.HGet(ctx, entity.Key(), field).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.None(), fmt.Errorf("%w: %s of %s", ports.ErrFieldNotFound, field, entity)
		}
		return domain.None(), fmt.Errorf("failed to get field: %w", err)
	}

	v, err := domain.ParseValue(raw)
	if err != nil {
		return domain.None(), fmt.Errorf("failed to parse %s of %s: %w", field, entity, err)
	}
	return v, nil
}

// SetField writes one parameter
func (s *ParameterStore) SetField(ctx context.Context, entity domain.Entity, field string, value domain.Value) error {
	if err := s.client.HSet(ctx, entity.Key(), field, value.String()).Err(); err != nil {
		return fmt.Errorf("failed to set field: %w", err)
	}

	s.logger.Debug("field set",
		zap.String("entity", entity.Key()),
		zap.String("field", field),
		zap.String("value", value.String()))

	return nil
}

// FieldExists checks whether a parameter has been written
func (s *ParameterStore) FieldExists(ctx context.Context, entity domain.Entity, field string) (bool, error) {
	ok, err := s.client.HExists(ctx, entity.Key(), field).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check field: %w", err)
	}
	return ok, nil
}

// GetFields reads every parameter of an entity
func (s *ParameterStore) GetFields(ctx context.Context, entity domain.Entity) (map[string]domain.Value, error) {
	raw, err := s.client.HGetAll(ctx, entity.Key()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get fields: %w", err)
	}

	out := make(map[string]domain.Value, len(raw))
	for field, value := range raw {
		v, err := domain.ParseValue(value)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s of %s: %w", field, entity, err)
		}
		out[field] = v
	}
	return out, nil
}

// PopulateIfAbsent writes the fields that do not exist yet
func (s *ParameterStore) PopulateIfAbsent(ctx context.Context, entity domain.Entity, fields map[string]domain.Value) error {
	if len(fields) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for field, value := range fields {
		pipe.HSetNX(ctx, entity.Key(), field, value.String())
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to populate fields: %w", err)
	}
	return nil
}

// GetStatus reads the calibration status of entity for node
func (s *ParameterStore) GetStatus(ctx context.Context, entity domain.Entity, node string) (domain.CalibrationStatus, error) {
	raw, err := s.client.HGet(ctx, entity.StatusKey(), node).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("%w: %s for %s", ports.ErrStatusMissing, node, entity.Name)
		}
		return "", fmt.Errorf("failed to get status: %w", err)
	}
	return domain.ParseCalibrationStatus(raw)
}

// SetStatus writes the calibration status of entity for node
func (s *ParameterStore) SetStatus(ctx context.Context, entity domain.Entity, node string, status domain.CalibrationStatus) error {
	if err := s.client.HSet(ctx, entity.StatusKey(), node, string(status)).Err(); err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}

	s.logger.Debug("status set",
		zap.String("entity", entity.Name),
		zap.String("node", node),
		zap.String("status", string(status)))

	return nil
}

// PopulateStatusIfAbsent marks entity not calibrated for node unless a
// status exists
func (s *ParameterStore) PopulateStatusIfAbsent(ctx context.Context, entity domain.Entity, node string) error {
	if err := s.client.HSetNX(ctx, entity.StatusKey(), node, string(domain.StatusNotCalibrated)).Err(); err != nil {
		return fmt.Errorf("failed to populate status: %w", err)
	}
	return nil
}
