package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/models"
)

// FileCredentialRepository keeps the token pair in a JSON document on disk so
// a session survives between runs.
type FileCredentialRepository struct {
	mu     sync.Mutex
	path   string
	logger *logrus.Logger
}

var _ CredentialRepository = (*FileCredentialRepository)(nil)

func NewFileCredentialRepository(path string, logger *logrus.Logger) *FileCredentialRepository {
	return &FileCredentialRepository{
		path:   path,
		logger: logger,
	}
}

func (r *FileCredentialRepository) Load(ctx context.Context) (models.Credentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *FileCredentialRepository) Save(ctx context.Context, creds models.Credentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.read()
	if err != nil {
		return err
	}

	return r.write(current.Merge(creds))
}

func (r *FileCredentialRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		r.logger.WithError(err).Error("Failed to remove credentials file")
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	return nil
}

func (r *FileCredentialRepository) read() (models.Credentials, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return models.Credentials{}, nil
	}
	if err != nil {
		return models.Credentials{}, fmt.Errorf("failed to read credentials: %w", err)
	}

	var creds models.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		// A corrupt file is treated like a signed-out session.
		r.logger.WithError(err).WithField("path", r.path).Warn("Ignoring unreadable credentials file")
		return models.Credentials{}, nil
	}

	return creds, nil
}

func (r *FileCredentialRepository) write(creds models.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credentials dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to create temp credentials file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod credentials file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		r.logger.WithError(err).Error("Failed to replace credentials file")
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	return nil
}
