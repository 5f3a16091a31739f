package file

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tradepulse/trademl/pkg/errors"
	"github.com/tradepulse/trademl/pkg/models"
)

// FileConfig holds configuration for filesystem checkpoint storage
type FileConfig struct {
	BaseDir string `json:"base_dir"`
}

// FileStorage persists checkpoints as JSON files under BaseDir. Writes
// go through a temp file and rename so a crashed save never leaves a
// truncated checkpoint behind.
type FileStorage struct {
	config *FileConfig
	logger *logrus.Logger
}

// NewFileStorage creates filesystem-backed checkpoint storage
func NewFileStorage(config *FileConfig, logger *logrus.Logger) (*FileStorage, error) {
	if config == nil || config.BaseDir == "" {
		return nil, errors.NewStorageError("INVALID_CONFIG", "file storage requires a base directory")
	}
	if logger == nil {
		logger = logrus.New()
	}
	if err := os.MkdirAll(config.BaseDir, 0o755); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "MKDIR_FAILED", "failed to create checkpoint directory")
	}
	return &FileStorage{config: config, logger: logger}, nil
}

func (fs *FileStorage) path(id string) string {
	return filepath.Join(fs.config.BaseDir, id+".json")
}

// Save stores a checkpoint under its ID
func (fs *FileStorage) Save(ctx context.Context, cp *models.Checkpoint) error {
	if cp == nil || cp.ID == "" {
		return errors.NewValidationError("INVALID_CHECKPOINT", "checkpoint must have an ID")
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "MARSHAL_FAILED", "failed to encode checkpoint")
	}

	tmp, err := os.CreateTemp(fs.config.BaseDir, cp.ID+".tmp-*")
	if err != nil {
		return errors.WrapError(err, errors.ErrorTypeStorage, "WRITE_FAILED", "failed to create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return errors.WrapError(err, errors.ErrorTypeStorage, "WRITE_FAILED", "failed to write checkpoint")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return errors.WrapError(err, errors.ErrorTypeStorage, "WRITE_FAILED", "failed to close temp file")
	}
	if err := os.Rename(tmp.Name(), fs.path(cp.ID)); err != nil {
		os.Remove(tmp.Name())
		return errors.WrapError(err, errors.ErrorTypeStorage, "WRITE_FAILED", "failed to finalize checkpoint")
	}

	fs.logger.WithFields(logrus.Fields{
		"checkpoint_id": cp.ID,
		"model_id":      cp.ModelID,
		"bytes":         len(data),
	}).Debug("Checkpoint saved")
	return nil
}

// Load retrieves a checkpoint by ID
func (fs *FileStorage) Load(ctx context.Context, id string) (*models.Checkpoint, error) {
	data, err := os.ReadFile(fs.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewStorageError("CHECKPOINT_NOT_FOUND", "checkpoint not found").
				WithContext("checkpoint_id", id)
		}
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "READ_FAILED", "failed to read checkpoint")
	}

	var cp models.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "UNMARSHAL_FAILED", "failed to decode checkpoint")
	}
	return &cp, nil
}

// List returns checkpoint IDs for a model, newest first. An empty
// modelID matches every checkpoint.
func (fs *FileStorage) List(ctx context.Context, modelID string) ([]string, error) {
	entries, err := os.ReadDir(fs.config.BaseDir)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrorTypeStorage, "READ_FAILED", "failed to list checkpoints")
	}

	type candidate struct {
		id      string
		created int64
	}
	var found []candidate
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		cp, err := fs.Load(ctx, id)
		if err != nil {
			continue
		}
		if modelID != "" && cp.ModelID != modelID {
			continue
		}
		found = append(found, candidate{id: id, created: cp.CreatedAt.UnixNano()})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].created > found[j].created })
	ids := make([]string, len(found))
	for i, c := range found {
		ids[i] = c.id
	}
	return ids, nil
}

// Delete removes a checkpoint by ID
func (fs *FileStorage) Delete(ctx context.Context, id string) error {
	if err := os.Remove(fs.path(id)); err != nil {
		if os.IsNotExist(err) {
			return errors.NewStorageError("CHECKPOINT_NOT_FOUND", "checkpoint not found").
				WithContext("checkpoint_id", id)
		}
		return errors.WrapError(err, errors.ErrorTypeStorage, "DELETE_FAILED", "failed to delete checkpoint")
	}
	return nil
}

// Close is a no-op for filesystem storage
func (fs *FileStorage) Close() error {
	return nil
}
