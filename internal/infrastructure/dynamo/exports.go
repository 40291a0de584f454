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

// ExportRepo tracks patient data export records. The archives themselves
// live in S3; this table only holds the metadata.
type ExportRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewExportRepo(client *dynamodb.Client, tableName string) *ExportRepo {
	return &ExportRepo{client: client, tableName: tableName}
}

func (r *ExportRepo) Put(ctx context.Context, e *domain.DataExport) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal export: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *ExportRepo) Get(ctx context.Context, exportID string) (*domain.DataExport, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("export_id", exportID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("export not found: %w", domain.ErrNotFound)
	}
	var e domain.DataExport
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *ExportRepo) ListByUser(ctx context.Context, userID string) ([]domain.DataExport, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, err
	}
	var exports []domain.DataExport
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &exports); err != nil {
		return nil, err
	}
	return exports, nil
}
