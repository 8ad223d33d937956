package session

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/printshelf/printshelf/internal/crypto"
)

// dynamoItem is the stored shape of a session. The access token is
// encrypted with KMS before it leaves the process; expires_at doubles as
// the DynamoDB TTL attribute.
type dynamoItem struct {
	SessionID            string `dynamodbav:"session_id"`
	Email                string `dynamodbav:"email"`
	EncryptedAccessToken string `dynamodbav:"encrypted_access_token"`
	CreatedAt            int64  `dynamodbav:"created_at"`
	ExpiresAt            int64  `dynamodbav:"expires_at"`
}

// DynamoStore backs the session repository with a DynamoDB table so that
// multiple server processes can share one session space.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
	encryptor crypto.Encryptor
	ttl       time.Duration
	now       func() time.Time
}

// NewDynamoStore creates a DynamoDB-backed session store.
func NewDynamoStore(client *dynamodb.Client, tableName string, encryptor crypto.Encryptor, ttl time.Duration) *DynamoStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		encryptor: encryptor,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (s *DynamoStore) Create(ctx context.Context, email, accessToken string) (*Session, error) {
	encrypted, err := s.encryptor.Encrypt(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypt access token: %w", err)
	}

	now := s.now()
	sess := Session{
		ID:          uuid.New().String(),
		Email:       email,
		AccessToken: accessToken,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ttl),
	}

	item, err := attributevalue.MarshalMap(dynamoItem{
		SessionID:            sess.ID,
		Email:                sess.Email,
		EncryptedAccessToken: encrypted,
		CreatedAt:            sess.CreatedAt.Unix(),
		ExpiresAt:            sess.ExpiresAt.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return nil, fmt.Errorf("put session: %w", err)
	}

	return &sess, nil
}

func (s *DynamoStore) Lookup(ctx context.Context, id string) (*Session, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"session_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if out.Item == nil {
		return nil, ErrNotFound
	}

	var item dynamoItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	expiresAt := time.Unix(item.ExpiresAt, 0)
	// DynamoDB TTL deletion lags, so the expiry is enforced here too.
	if s.now().After(expiresAt) {
		return nil, ErrNotFound
	}

	accessToken, err := s.encryptor.Decrypt(ctx, item.EncryptedAccessToken)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}

	return &Session{
		ID:          item.SessionID,
		Email:       item.Email,
		AccessToken: accessToken,
		CreatedAt:   time.Unix(item.CreatedAt, 0),
		ExpiresAt:   expiresAt,
	}, nil
}

func (s *DynamoStore) Destroy(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"session_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
