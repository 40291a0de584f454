package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/medical-records-api/internal/domain"
)

// SecuritySettingsRepo stores per-account security alert toggles, keyed by
// email. Get never fails on a missing record: absence means everything is
// enabled, so callers always receive usable settings.
type SecuritySettingsRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewSecuritySettingsRepo(client *dynamodb.Client, tableName string) *SecuritySettingsRepo {
	return &SecuritySettingsRepo{client: client, tableName: tableName}
}

func (r *SecuritySettingsRepo) Put(ctx context.Context, s *domain.SecuritySettings) error {
	s.UpdatedAt = time.Now().UTC()
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal security settings: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

func (r *SecuritySettingsRepo) Get(ctx context.Context, email string) (*domain.SecuritySettings, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey("email", email),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return &domain.SecuritySettings{
			Email:                    email,
			LoginNotifications:       true,
			SuspiciousActivityAlerts: true,
		}, nil
	}
	var s domain.SecuritySettings
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
