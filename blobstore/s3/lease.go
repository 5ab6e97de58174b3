package s3

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ErrLeaseHeld is returned when another writer holds the lease.
var ErrLeaseHeld = errors.New("writer lease held by another owner")

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Lease is an exclusive writer lease backed by DynamoDB conditional writes.
// S3 has no compare-and-swap, so a shared device image needs an external
// arbiter to keep two writers from clobbering each other's blocks. One lease
// item per image; expired leases may be taken over.
//
// Table schema:
//   - Partition key: lease_key (string) - the image identity, e.g. "s3://bucket/prefix"
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name blockdev-leases \
//	  --attribute-definitions AttributeName=lease_key,AttributeType=S \
//	  --key-schema AttributeName=lease_key,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
type Lease struct {
	client    DDBClient
	tableName string
	leaseKey  string
	owner     string
	ttl       time.Duration

	// now is swapped out in tests.
	now func() time.Time
}

// NewLease creates a lease handle. owner must be unique per writer process
// (e.g. hostname plus a random suffix). The lease is not acquired until
// Acquire succeeds.
func NewLease(client DDBClient, tableName, leaseKey, owner string, ttl time.Duration) *Lease {
	return &Lease{
		client:    client,
		tableName: tableName,
		leaseKey:  leaseKey,
		owner:     owner,
		ttl:       ttl,
		now:       time.Now,
	}
}

// Acquire takes the lease. Succeeds if no lease item exists, the existing
// lease has expired, or this owner already holds it. Returns ErrLeaseHeld if
// another writer holds an unexpired lease.
func (l *Lease) Acquire(ctx context.Context) error {
	now := l.now()
	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.tableName),
		Item:      l.item(now),
		ConditionExpression: aws.String(
			"attribute_not_exists(lease_key) OR expires_at < :now OR lease_owner = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":   &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.UnixMilli())},
			":owner": &types.AttributeValueMemberS{Value: l.owner},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrLeaseHeld
		}
		return fmt.Errorf("failed to acquire lease: %w", err)
	}
	return nil
}

// Renew extends the lease. Fails with ErrLeaseHeld if the lease was lost,
// which means this writer must stop issuing writes immediately.
func (l *Lease) Renew(ctx context.Context) error {
	now := l.now()
	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                l.item(now),
		ConditionExpression: aws.String("lease_owner = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: l.owner},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrLeaseHeld
		}
		return fmt.Errorf("failed to renew lease: %w", err)
	}
	return nil
}

// Release gives up the lease. Releasing a lease held by another owner is a
// no-op so a stale writer cannot evict the current one.
func (l *Lease) Release(ctx context.Context) error {
	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			"lease_key": &types.AttributeValueMemberS{Value: l.leaseKey},
		},
		ConditionExpression: aws.String("lease_owner = :owner"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: l.owner},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil
		}
		return fmt.Errorf("failed to release lease: %w", err)
	}
	return nil
}

// Holder reports the current lease owner, or "" if no live lease exists.
func (l *Lease) Holder(ctx context.Context) (string, error) {
	resp, err := l.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			"lease_key": &types.AttributeValueMemberS{Value: l.leaseKey},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read lease: %w", err)
	}
	if len(resp.Item) == 0 {
		return "", nil
	}

	ownerAttr, ok := resp.Item["lease_owner"].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("invalid lease_owner attribute in DynamoDB")
	}
	expiresAttr, ok := resp.Item["expires_at"].(*types.AttributeValueMemberN)
	if !ok {
		return "", errors.New("invalid expires_at attribute in DynamoDB")
	}

	var expires int64
	if _, err := fmt.Sscanf(expiresAttr.Value, "%d", &expires); err != nil {
		return "", fmt.Errorf("failed to parse expires_at: %w", err)
	}
	if expires < l.now().UnixMilli() {
		return "", nil
	}
	return ownerAttr.Value, nil
}

func (l *Lease) item(now time.Time) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"lease_key":   &types.AttributeValueMemberS{Value: l.leaseKey},
		"lease_owner": &types.AttributeValueMemberS{Value: l.owner},
		"expires_at":  &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", now.Add(l.ttl).UnixMilli())},
	}
}
