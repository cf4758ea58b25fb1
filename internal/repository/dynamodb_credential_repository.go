package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
	"github.com/studysync/studysync/internal/models"
)

// DynamoDBAPI is the subset of *dynamodb.Client the repository uses.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoDBCredentialRepository keeps one item per namespace:
// PK=CREDENTIALS#<namespace>, SK=METADATA.
type DynamoDBCredentialRepository struct {
	client    DynamoDBAPI
	tableName string
	namespace string
	logger    *logrus.Logger
}

var _ CredentialRepository = (*DynamoDBCredentialRepository)(nil)

func NewDynamoDBCredentialRepository(client DynamoDBAPI, tableName, namespace string, logger *logrus.Logger) *DynamoDBCredentialRepository {
	return &DynamoDBCredentialRepository{
		client:    client,
		tableName: tableName,
		namespace: namespace,
		logger:    logger,
	}
}

func (r *DynamoDBCredentialRepository) itemKey() map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CREDENTIALS#%s", r.namespace)},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

func (r *DynamoDBCredentialRepository) Load(ctx context.Context) (models.Credentials, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            r.itemKey(),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to get credentials from DynamoDB")
		return models.Credentials{}, fmt.Errorf("failed to load credentials: %w", err)
	}

	if result.Item == nil {
		return models.Credentials{}, nil
	}

	var creds models.Credentials
	if err := attributevalue.UnmarshalMap(result.Item, &creds); err != nil {
		return models.Credentials{}, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}

	return creds, nil
}

// Save issues an UpdateItem that SETs only the fields present in creds.
func (r *DynamoDBCredentialRepository) Save(ctx context.Context, creds models.Credentials) error {
	var sets []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}

	if creds.AccessToken != "" {
		sets = append(sets, "#access = :access")
		names["#access"] = models.KeyAccessToken
		values[":access"] = &types.AttributeValueMemberS{Value: creds.AccessToken}
	}
	if creds.RefreshToken != "" {
		sets = append(sets, "#refresh = :refresh")
		names["#refresh"] = models.KeyRefreshToken
		values[":refresh"] = &types.AttributeValueMemberS{Value: creds.RefreshToken}
	}

	if len(sets) == 0 {
		return nil
	}

	_, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       r.itemKey(),
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to store credentials in DynamoDB")
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	return nil
}

func (r *DynamoDBCredentialRepository) Clear(ctx context.Context) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       r.itemKey(),
	})
	if err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	return nil
}
