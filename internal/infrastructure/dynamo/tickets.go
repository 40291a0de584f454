package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/medical-records-api/internal/domain"
)

// TicketRepo provides typed DynamoDB operations for the support tickets table.
type TicketRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewTicketRepo(client *dynamodb.Client, tableName string) *TicketRepo {
	return &TicketRepo{client: client, tableName: tableName}
}

func (r *TicketRepo) Put(ctx context.Context, t *domain.SupportTicket) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *TicketRepo) Get(ctx context.Context, ticketNumber string) (*domain.SupportTicket, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("ticket_number", ticketNumber),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("ticket not found: %w", domain.ErrNotFound)
	}
	var t domain.SupportTicket
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByEmail returns tickets raised by an account via the email GSI.
func (r *TicketRepo) ListByEmail(ctx context.Context, email string) ([]domain.SupportTicket, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("email-index"),
		KeyConditionExpression: aws.String("email = :em"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":em": &types.AttributeValueMemberS{Value: email},
		},
	})
	if err != nil {
		return nil, err
	}
	var tickets []domain.SupportTicket
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *TicketRepo) UpdateStatus(ctx context.Context, ticketNumber, status string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldStatus:  status,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("ticket_number", ticketNumber),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
