package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/smk-student-hub/internal/models"
	"github.com/noah-isme/smk-student-hub/internal/repository"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
	"github.com/noah-isme/smk-student-hub/pkg/eventbus"
)

const mutateAttempts = 3

// StateService is the typed facade over the keyed namespace. Every successful write publishes a change event.
type StateService struct {
	store   repository.StateStore
	bus     *eventbus.Bus
	metrics *MetricsService
	logger  *zap.Logger
}

// NewStateService constructs the state service.
func NewStateService(store repository.StateStore, bus *eventbus.Bus, metrics *MetricsService, logger *zap.Logger) *StateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bus == nil {
		bus = eventbus.New(logger)
	}
	return &StateService{store: store, bus: bus, metrics: metrics, logger: logger}
}

// Bus exposes the event bus writes are published on.
func (s *StateService) Bus() *eventbus.Bus {
	return s.bus
}

// Load decodes key into T. An absent key yields def with version 0. A value that fails to decode
// also yields def, with the stored version, so the next write replaces it.
func Load[T any](ctx context.Context, s *StateService, key models.StateKey, def T) (T, int64, error) {
	entry, err := s.store.Get(ctx, key)
	if err != nil {
		return def, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read "+string(key))
	}
	if entry == nil {
		return def, 0, nil
	}
	var out T
	if err := json.Unmarshal(entry.Value, &out); err != nil {
		s.logger.Warn("stored value could not be decoded, using default", zap.String("key", string(key)), zap.Error(err))
		return def, entry.Version, nil
	}
	return out, entry.Version, nil
}

// LoadStrict is Load without the fallback: an undecodable value is reported as DECODE_ERROR.
func LoadStrict[T any](ctx context.Context, s *StateService, key models.StateKey, def T) (T, int64, error) {
	entry, err := s.store.Get(ctx, key)
	if err != nil {
		return def, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read "+string(key))
	}
	if entry == nil {
		return def, 0, nil
	}
	var out T
	if err := json.Unmarshal(entry.Value, &out); err != nil {
		return def, entry.Version, appErrors.Wrap(err, appErrors.ErrDecode.Code, appErrors.ErrDecode.Status, string(key)+" could not be decoded")
	}
	return out, entry.Version, nil
}

// mutate loads key, applies fn and saves with the loaded version, retrying when another writer got in first.
func mutate[T any](ctx context.Context, s *StateService, key models.StateKey, def func() T, fn func(*T) error) (T, error) {
	var zero T
	for attempt := 1; ; attempt++ {
		value, version, err := Load(ctx, s, key, def())
		if err != nil {
			return zero, err
		}
		if err := fn(&value); err != nil {
			return zero, err
		}
		_, err = s.Save(ctx, key, value, version)
		if err == nil {
			return value, nil
		}
		if !errors.Is(err, appErrors.ErrVersionConflict) || attempt >= mutateAttempts {
			return zero, err
		}
		s.logger.Debug("retrying state write after conflict", zap.String("key", string(key)), zap.Int("attempt", attempt))
	}
}

// Save encodes value and writes it under key.
func (s *StateService) Save(ctx context.Context, key models.StateKey, value interface{}, expected int64) (*models.StateEntry, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "value could not be encoded")
	}
	return s.write(ctx, key, raw, expected)
}

// Raw returns the stored bytes for key without decoding them.
func (s *StateService) Raw(ctx context.Context, key models.StateKey) (*models.StateEntry, error) {
	entry, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read "+string(key))
	}
	if entry == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, string(key)+" is not set")
	}
	return entry, nil
}

// SaveRaw writes a caller-supplied JSON document. The document is compacted before storing.
func (s *StateService) SaveRaw(ctx context.Context, key models.StateKey, raw []byte, expected int64) (*models.StateEntry, error) {
	compacted, err := compactJSON(raw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "value must be valid JSON")
	}
	return s.write(ctx, key, compacted, expected)
}

// Snapshot lists every stored entry ordered by key.
func (s *StateService) Snapshot(ctx context.Context) ([]models.StateEntry, error) {
	entries, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read namespace")
	}
	return entries, nil
}

// Replace swaps the whole namespace and announces a reset to every subscriber.
func (s *StateService) Replace(ctx context.Context, entries map[models.StateKey]json.RawMessage) error {
	if err := s.store.Replace(ctx, entries); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace namespace")
	}
	s.bus.Publish(eventbus.Event{Entity: eventbus.EntityNamespace, Action: eventbus.ActionReset})
	return nil
}

// Ping checks the backing store.
func (s *StateService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *StateService) write(ctx context.Context, key models.StateKey, raw json.RawMessage, expected int64) (*models.StateEntry, error) {
	start := time.Now()
	entry, err := s.store.Set(ctx, key, raw, expected)
	switch {
	case errors.Is(err, repository.ErrVersionMismatch):
		s.metrics.ObserveStateWrite(key, "conflict", time.Since(start))
		return nil, appErrors.Clone(appErrors.ErrVersionConflict, string(key)+" was modified by another writer")
	case err != nil:
		s.metrics.ObserveStateWrite(key, "error", time.Since(start))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to write "+string(key))
	}
	s.metrics.ObserveStateWrite(key, "ok", time.Since(start))
	s.bus.Publish(eventbus.Event{
		Entity:  key.Entity(),
		Key:     string(key),
		Action:  eventbus.ActionUpdated,
		Version: entry.Version,
	})
	return entry, nil
}

func compactJSON(raw []byte) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, err
	}
	return json.RawMessage(buf.Bytes()), nil
}
