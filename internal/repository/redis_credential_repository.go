package repository

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/models"
)

// RedisCredentialRepository stores each token under its own key so that a
// partial save touches only the keys it carries.
type RedisCredentialRepository struct {
	client    redis.UniversalClient
	namespace string
	logger    *logrus.Logger
}

var _ CredentialRepository = (*RedisCredentialRepository)(nil)

func NewRedisCredentialRepository(client redis.UniversalClient, namespace string, logger *logrus.Logger) *RedisCredentialRepository {
	return &RedisCredentialRepository{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

func (r *RedisCredentialRepository) key(field string) string {
	return fmt.Sprintf("studysync:%s:%s", r.namespace, field)
}

func (r *RedisCredentialRepository) Load(ctx context.Context) (models.Credentials, error) {
	vals, err := r.client.MGet(ctx, r.key(models.KeyAccessToken), r.key(models.KeyRefreshToken)).Result()
	if err != nil {
		r.logger.WithError(err).Error("Failed to load credentials from Redis")
		return models.Credentials{}, fmt.Errorf("failed to load credentials: %w", err)
	}

	var creds models.Credentials
	if s, ok := vals[0].(string); ok {
		creds.AccessToken = s
	}
	if s, ok := vals[1].(string); ok {
		creds.RefreshToken = s
	}

	return creds, nil
}

func (r *RedisCredentialRepository) Save(ctx context.Context, creds models.Credentials) error {
	pipe := r.client.TxPipeline()
	if creds.AccessToken != "" {
		pipe.Set(ctx, r.key(models.KeyAccessToken), creds.AccessToken, 0)
	}
	if creds.RefreshToken != "" {
		pipe.Set(ctx, r.key(models.KeyRefreshToken), creds.RefreshToken, 0)
	}

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		r.logger.WithError(err).Error("Failed to store credentials in Redis")
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	return nil
}

func (r *RedisCredentialRepository) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key(models.KeyAccessToken), r.key(models.KeyRefreshToken)).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
