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

// AppointmentRepo provides typed DynamoDB operations for the appointments table.
type AppointmentRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAppointmentRepo(client *dynamodb.Client, tableName string) *AppointmentRepo {
	return &AppointmentRepo{client: client, tableName: tableName}
}

func (r *AppointmentRepo) Put(ctx context.Context, a *domain.Appointment) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal appointment: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *AppointmentRepo) Get(ctx context.Context, appointmentID string) (*domain.Appointment, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("appointment_id", appointmentID),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("appointment not found: %w", domain.ErrNotFound)
	}
	var a domain.Appointment
	if err := attributevalue.UnmarshalMap(out.Item, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByUser returns a user's appointments ordered by scheduled time.
func (r *AppointmentRepo) ListByUser(ctx context.Context, userID string) ([]domain.Appointment, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("user_id-scheduled_at-index"),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		return nil, err
	}
	var appointments []domain.Appointment
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

// ListUpcoming returns active appointments scheduled inside [from, to),
// across all users. Backed by a filtered scan; the reminder sweep runs on
// a minute cadence over a small window, so a scan is acceptable here.
func (r *AppointmentRepo) ListUpcoming(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(r.tableName),
		FilterExpression: aws.String("scheduled_at >= :from AND scheduled_at < :to AND #st IN (:scheduled, :confirmed)"),
		ExpressionAttributeNames: map[string]string{
			"#st": fieldStatus,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":from":      &types.AttributeValueMemberS{Value: from.UTC().Format(time.RFC3339)},
			":to":        &types.AttributeValueMemberS{Value: to.UTC().Format(time.RFC3339)},
			":scheduled": &types.AttributeValueMemberS{Value: domain.AppointmentScheduled},
			":confirmed": &types.AttributeValueMemberS{Value: domain.AppointmentConfirmed},
		},
	})
	if err != nil {
		return nil, err
	}
	var appointments []domain.Appointment
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &appointments); err != nil {
		return nil, err
	}
	return appointments, nil
}

func (r *AppointmentRepo) UpdateStatus(ctx context.Context, appointmentID, status string) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		fieldStatus:  status,
		"updated_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("appointment_id", appointmentID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}
