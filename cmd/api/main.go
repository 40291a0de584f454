package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/medical-records-api/internal/config"
	"github.com/medical-records-api/internal/infrastructure/dynamo"
	"github.com/medical-records-api/internal/infrastructure/expo"
	jwtinfra "github.com/medical-records-api/internal/infrastructure/jwt"
	s3infra "github.com/medical-records-api/internal/infrastructure/s3"
	"github.com/medical-records-api/internal/infrastructure/smtp"
	"github.com/medical-records-api/internal/infrastructure/sns"
	"github.com/medical-records-api/internal/realtime"
	transporthttp "github.com/medical-records-api/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg := config.Load()

	// Bootstrap DynamoDB tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(cfg)
	dynamo.Bootstrap(context.Background(), dynamoClient, cfg.DynamoTables)

	// JWT provider (optional — graceful fallback if keys are missing).
	var jwtProvider *jwtinfra.Provider
	if p, err := jwtinfra.NewProvider(cfg); err == nil {
		jwtProvider = p
	} else {
		log.Printf("WARN: JWT provider not available: %v", err)
	}

	// S3 store for record exports.
	s3Client := s3infra.NewClient(cfg)
	s3Store := s3infra.NewStore(s3Client, cfg.S3BucketName)

	// SMTP mailer.
	mailer := smtp.NewMailer(cfg)

	// SNS SMS sender (optional — graceful fallback).
	var smsSender sns.SMSSender
	if sender, err := sns.NewSender(cfg); err == nil {
		smsSender = sender
	} else {
		log.Printf("WARN: SNS sender not available: %v", err)
	}

	// Expo push gateway.
	pushSender := expo.NewClient(cfg)

	// Realtime hub shared by the websocket endpoint and the delivery engine.
	hub := realtime.NewHub()

	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		SessionRepo:      dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions),
		NotificationRepo: dynamo.NewNotificationRepo(dynamoClient, cfg.DynamoTables.Notifications),
		DeliveryRepo:     dynamo.NewDeliveryRepo(dynamoClient, cfg.DynamoTables.Deliveries),
		AppointmentRepo:  dynamo.NewAppointmentRepo(dynamoClient, cfg.DynamoTables.Appointments),
		ResultRepo:       dynamo.NewResultRepo(dynamoClient, cfg.DynamoTables.TestResults),
		TicketRepo:       dynamo.NewTicketRepo(dynamoClient, cfg.DynamoTables.SupportTickets),
		ExportRepo:       dynamo.NewExportRepo(dynamoClient, cfg.DynamoTables.DataExports),
		SecurityRepo:     dynamo.NewSecuritySettingsRepo(dynamoClient, cfg.DynamoTables.SecuritySettings),
		VerificationRepo: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.UserVerifications),
		S3Store:          s3Store,
		Mailer:           mailer,
		SMSSender:        smsSender,
		PushSender:       pushSender,
		JWTProvider:      jwtProvider,
		Hub:              hub,
	}

	router := transporthttp.NewRouter(cfg, deps)

	// No Read/WriteTimeout: /ws holds connections open indefinitely and
	// enforces its own read and write deadlines.
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s)", cfg.AppPort, cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}
