package domain

import "time"

// Test result statuses.
const (
	ResultPending  = "PENDING"
	ResultNormal   = "NORMAL"
	ResultAbnormal = "ABNORMAL"
	ResultCritical = "CRITICAL"
)

type TestResult struct {
	ResultID  string    `json:"id" dynamodbav:"result_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	TestType  string    `json:"test_type" dynamodbav:"test_type"`
	TestName  string    `json:"test_name" dynamodbav:"test_name"`
	Result    string    `json:"result" dynamodbav:"result"`
	Status    string    `json:"status" dynamodbav:"status"`
	LabName   string    `json:"lab_name,omitempty" dynamodbav:"lab_name"`
	TestDate  time.Time `json:"test_date" dynamodbav:"test_date"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated" dynamodbav:"updated_at"`
}

type AddTestResultRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	TestType string `json:"test_type" validate:"required"`
	TestName string `json:"test_name" validate:"required"`
	Result   string `json:"result" validate:"required"`
	Status   string `json:"status" validate:"required,oneof=PENDING NORMAL ABNORMAL CRITICAL"`
	LabName  string `json:"lab_name"`
	TestDate string `json:"test_date"` // expected format: YYYY-MM-DD
}
