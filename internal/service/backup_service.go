package service

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

// BackupService exports and restores the whole namespace as one JSON document.
type BackupService struct {
	state  *StateService
	logger *zap.Logger
}

// NewBackupService constructs the backup service.
func NewBackupService(state *StateService, logger *zap.Logger) *BackupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupService{state: state, logger: logger}
}

// Export returns an object whose members are exactly the stored keys. Stored JSON is embedded as is;
// bytes that are not JSON are embedded as a string.
func (s *BackupService) Export(ctx context.Context) ([]byte, error) {
	entries, err := s.state.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	document := make(map[string]json.RawMessage, len(entries))
	for _, entry := range entries {
		if json.Valid(entry.Value) {
			document[string(entry.Key)] = entry.Value
			continue
		}
		encoded, err := encodeVerbatim(string(entry.Value))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode "+string(entry.Key))
		}
		document[string(entry.Key)] = encoded
	}
	out, err := encodeVerbatim(document)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode backup")
	}
	return out, nil
}

// Import clears the namespace and writes every member of the backup. Unknown keys reject the whole file.
// Keys missing from the backup read as their defaults afterwards.
func (s *BackupService) Import(ctx context.Context, data []byte) ([]models.StateKey, error) {
	var document map[string]json.RawMessage
	if err := json.Unmarshal(data, &document); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "backup must be a JSON object")
	}
	if document == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "backup must be a JSON object")
	}

	entries := make(map[models.StateKey]json.RawMessage, len(document))
	unknown := make([]string, 0)
	for name, raw := range document {
		key, ok := models.ParseStateKey(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		compacted, err := compactJSON(raw)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid value for "+name)
		}
		entries[key] = compacted
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, appErrors.Clone(appErrors.ErrUnknownKey, "unknown keys: "+strings.Join(unknown, ", "))
	}

	if err := s.state.Replace(ctx, entries); err != nil {
		return nil, err
	}
	restored := make([]models.StateKey, 0, len(entries))
	for key := range entries {
		restored = append(restored, key)
	}
	sort.Slice(restored, func(i, j int) bool { return restored[i] < restored[j] })
	s.logger.Info("namespace restored", zap.Int("keys", len(restored)))
	return restored, nil
}

// encodeVerbatim marshals without HTML escaping so embedded values keep the bytes they were stored with.
func encodeVerbatim(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
