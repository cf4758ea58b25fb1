package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
	"github.com/studysync/studysync/internal/models"
)

// fakeDynamoDB applies "SET #n = :n" updates to an in-memory item table.
type fakeDynamoDB struct {
	mu      sync.Mutex
	items   map[string]map[string]types.AttributeValue
	updates []*dynamodb.UpdateItemInput
	err     error
}

func newFakeDynamoDB() *fakeDynamoDB {
	return &fakeDynamoDB{items: map[string]map[string]types.AttributeValue{}}
}

func keyString(key map[string]types.AttributeValue) string {
	pk := key["PK"].(*types.AttributeValueMemberS).Value
	sk := key["SK"].(*types.AttributeValueMemberS).Value
	return pk + "|" + sk
}

func (f *fakeDynamoDB) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[keyString(in.Key)]}, nil
}

func (f *fakeDynamoDB) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.updates = append(f.updates, in)

	k := keyString(in.Key)
	item, ok := f.items[k]
	if !ok {
		item = map[string]types.AttributeValue{"PK": in.Key["PK"], "SK": in.Key["SK"]}
		f.items[k] = item
	}
	for placeholder, attr := range in.ExpressionAttributeNames {
		item[attr] = in.ExpressionAttributeValues[":"+strings.TrimPrefix(placeholder, "#")]
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamoDB) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	delete(f.items, keyString(in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestDynamoDBCredentialRepository_Fake(t *testing.T) {
	runRepositoryContract(t, func(t *testing.T) CredentialRepository {
		return NewDynamoDBCredentialRepository(newFakeDynamoDB(), "Creds", "alice", testLogger())
	})
}

func TestDynamoDBCredentialRepository_UpdateExpression(t *testing.T) {
	fake := newFakeDynamoDB()
	repo := NewDynamoDBCredentialRepository(fake, "Creds", "alice", testLogger())

	require.NoError(t, repo.Save(context.Background(), models.Credentials{AccessToken: "X"}))
	require.NoError(t, repo.Save(context.Background(), models.Credentials{}))

	require.Len(t, fake.updates, 1)
	in := fake.updates[0]
	require.Equal(t, "SET #access = :access", *in.UpdateExpression)
	require.Equal(t, map[string]string{"#access": models.KeyAccessToken}, in.ExpressionAttributeNames)
	require.Equal(t, "CREDENTIALS#alice", in.Key["PK"].(*types.AttributeValueMemberS).Value)
	require.Equal(t, "METADATA", in.Key["SK"].(*types.AttributeValueMemberS).Value)
}

func TestDynamoDBCredentialRepository_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamoDB()
	alice := NewDynamoDBCredentialRepository(fake, "Creds", "alice", testLogger())
	bob := NewDynamoDBCredentialRepository(fake, "Creds", "bob", testLogger())

	require.NoError(t, alice.Save(ctx, models.Credentials{AccessToken: "A", RefreshToken: "B"}))

	creds, err := bob.Load(ctx)
	require.NoError(t, err)
	require.True(t, creds.Empty())
}

func TestDynamoDBCredentialRepository_BackendError(t *testing.T) {
	fake := newFakeDynamoDB()
	fake.err = errors.New("throttled")
	repo := NewDynamoDBCredentialRepository(fake, "Creds", "alice", testLogger())

	_, err := repo.Load(context.Background())
	require.ErrorContains(t, err, "failed to load credentials")

	err = repo.Save(context.Background(), models.Credentials{AccessToken: "A"})
	require.ErrorContains(t, err, "failed to store credentials")

	err = repo.Clear(context.Background())
	require.ErrorContains(t, err, "failed to clear credentials")
}
