package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/medical-records-api/internal/domain"
)

// ResultRepo provides typed DynamoDB operations for the test results table.
type ResultRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewResultRepo(client *dynamodb.Client, tableName string) *ResultRepo {
	return &ResultRepo{client: client, tableName: tableName}
}

func (r *ResultRepo) Put(ctx context.Context, res *domain.TestResult) error {
	item, err := attributevalue.MarshalMap(res)
	if err != nil {
		return fmt.Errorf("marshal test result: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ResultRepo) Get(ctx context.Context, resultID string) (*domain.TestResult, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("result_id", resultID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("test result not found: %w", domain.ErrNotFound)
	}
	var res domain.TestResult
	if err := attributevalue.UnmarshalMap(out.Item, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListByUser returns a user's results via the user_id-created_at GSI, newest first.
func (r *ResultRepo) ListByUser(ctx context.Context, userID string) ([]domain.TestResult, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-created_at-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, err
	}
	var results []domain.TestResult
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &results); err != nil {
		return nil, err
	}
	return results, nil
}
