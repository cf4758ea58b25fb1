package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/config"
)

// NewCredentialRepository builds the repository selected by cfg.Store.Backend.
// The returned close func releases backend connections.
func NewCredentialRepository(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (CredentialRepository, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Backend {
	case config.StoreMemory:
		return NewMemoryCredentialRepository(), noop, nil

	case config.StoreFile:
		return NewFileCredentialRepository(cfg.Store.Path, logger), noop, nil

	case config.StoreRedis:
		client, err := NewRedisClient(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisCredentialRepository(client, cfg.Store.Namespace, logger), client.Close, nil

	case config.StoreDynamoDB:
		client, err := NewDynamoDBClient(ctx, cfg.DynamoDB, logger)
		if err != nil {
			return nil, nil, err
		}
		return NewDynamoDBCredentialRepository(client, cfg.DynamoDB.TableName, cfg.Store.Namespace, logger), noop, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}

func NewRedisClient(ctx context.Context, cfg config.RedisConfig, logger *logrus.Logger) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Endpoint,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.WithField("endpoint", cfg.Endpoint).Debug("Redis client initialized")
	return client, nil
}

func NewDynamoDBClient(ctx context.Context, cfg config.DynamoDBConfig, logger *logrus.Logger) (*dynamodb.Client, error) {
	var awsCfg aws.Config
	var err error

	if cfg.Endpoint != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithEndpointResolverWithOptions(aws.EndpointResolverWithOptionsFunc(
				func(service, region string, options ...interface{}) (aws.Endpoint, error) {
					return aws.Endpoint{
						URL:           cfg.Endpoint,
						SigningRegion: cfg.Region,
					}, nil
				})),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg)
	logger.Debug("DynamoDB client initialized")
	return client, nil
}
