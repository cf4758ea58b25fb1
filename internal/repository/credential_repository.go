package repository

import (
	"context"
	"sync"

	"github.com/studysync/studysync/internal/models"
)

// CredentialRepository persists the client's token pair.
//
// Load never reports missing tokens as an error; absent fields come back
// empty. Save writes only the non-empty fields of its argument, so a refresh
// response without a refresh token keeps the stored one. Clear is idempotent.
type CredentialRepository interface {
	Load(ctx context.Context) (models.Credentials, error)
	Save(ctx context.Context, creds models.Credentials) error
	Clear(ctx context.Context) error
}

type MemoryCredentialRepository struct {
	mu    sync.RWMutex
	creds models.Credentials
}

var _ CredentialRepository = (*MemoryCredentialRepository)(nil)

func NewMemoryCredentialRepository() *MemoryCredentialRepository {
	return &MemoryCredentialRepository{}
}

func (r *MemoryCredentialRepository) Load(ctx context.Context) (models.Credentials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.creds, nil
}

func (r *MemoryCredentialRepository) Save(ctx context.Context, creds models.Credentials) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds = r.creds.Merge(creds)
	return nil
}

func (r *MemoryCredentialRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creds = models.Credentials{}
	return nil
}
