package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/medical-records-api/internal/application/appointment"
	"github.com/medical-records-api/internal/application/auth"
	"github.com/medical-records-api/internal/application/export"
	"github.com/medical-records-api/internal/application/notification"
	"github.com/medical-records-api/internal/application/result"
	"github.com/medical-records-api/internal/application/session"
	"github.com/medical-records-api/internal/application/settings"
	"github.com/medical-records-api/internal/application/support"
	"github.com/medical-records-api/internal/application/user"
	"github.com/medical-records-api/internal/config"
	"github.com/medical-records-api/internal/domain"
	"github.com/medical-records-api/internal/infrastructure/dynamo"
	"github.com/medical-records-api/internal/infrastructure/expo"
	jwtinfra "github.com/medical-records-api/internal/infrastructure/jwt"
	s3infra "github.com/medical-records-api/internal/infrastructure/s3"
	"github.com/medical-records-api/internal/infrastructure/smtp"
	"github.com/medical-records-api/internal/infrastructure/sns"
	"github.com/medical-records-api/internal/realtime"
	"github.com/medical-records-api/internal/transport/http/handler"
	appmiddleware "github.com/medical-records-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo         *dynamo.UserRepo
	SessionRepo      *dynamo.SessionRepo
	NotificationRepo *dynamo.NotificationRepo
	DeliveryRepo     *dynamo.DeliveryRepo
	AppointmentRepo  *dynamo.AppointmentRepo
	ResultRepo       *dynamo.ResultRepo
	TicketRepo       *dynamo.TicketRepo
	ExportRepo       *dynamo.ExportRepo
	SecurityRepo     *dynamo.SecuritySettingsRepo
	VerificationRepo *dynamo.VerificationRepo
	S3Store          *s3infra.Store
	Mailer           smtp.Mailer
	SMSSender        sns.SMSSender
	PushSender       expo.PushSender
	JWTProvider      *jwtinfra.Provider
	Hub              *realtime.Hub
}

// wsTokenVerifier adapts the JWT provider to the realtime handshake, which
// only needs the canonical username behind a bearer credential.
type wsTokenVerifier struct {
	provider *jwtinfra.Provider
}

func (v *wsTokenVerifier) VerifyToken(token string) (string, error) {
	if v.provider == nil {
		return "", errors.New("token verification unavailable")
	}
	claims, err := v.provider.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Username, nil
}

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw, optionalAuthMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
		optionalAuthMw = appmiddleware.OptionalAuth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
		optionalAuthMw = authMw
	}

	// 5 requests/second, burst of 10 — applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	refreshDur := time.Duration(cfg.RefreshTokenExpiryDays) * 24 * time.Hour

	publisher := realtime.NewPublisher(deps.Hub)

	notifSvc := notification.NewService(notification.ServiceDeps{
		UserRepo:          deps.UserRepo,
		NotificationRepo:  deps.NotificationRepo,
		DeliveryRepo:      deps.DeliveryRepo,
		SecurityRepo:      deps.SecurityRepo,
		PushSender:        deps.PushSender,
		Mailer:            deps.Mailer,
		SMSSender:         deps.SMSSender,
		RealtimePublisher: publisher,
	})
	userSvc := user.NewService(deps.UserRepo, deps.SessionRepo)
	sessionSvc := session.NewService(session.ServiceDeps{
		SessionRepo:     deps.SessionRepo,
		UserRepo:        deps.UserRepo,
		JWTProvider:     deps.JWTProvider,
		Notifier:        notifSvc,
		RefreshTokenDur: refreshDur,
	})
	authSvc := auth.NewService(auth.ServiceDeps{
		VerificationRepo: deps.VerificationRepo,
		UserRepo:         deps.UserRepo,
		SessionRepo:      deps.SessionRepo,
		Mailer:           deps.Mailer,
		JWTProvider:      deps.JWTProvider,
		Notifier:         notifSvc,
		RefreshTokenDur:  refreshDur,
	})
	settingsSvc := settings.NewService(deps.UserRepo, deps.SecurityRepo)
	apptSvc := appointment.NewService(deps.AppointmentRepo, notifSvc, publisher)

	// Minute-cadence sweep for the 24h/1h/15m appointment reminders.
	go appointment.NewReminderWorker(deps.AppointmentRepo, notifSvc, time.Minute).
		Run(context.Background())
	resultSvc := result.NewService(deps.ResultRepo, notifSvc, publisher)
	supportSvc := support.NewService(deps.TicketRepo, notifSvc, deps.Mailer, cfg.SupportTeamEmail)
	exportSvc := export.NewService(export.ServiceDeps{
		ExportRepo:      deps.ExportRepo,
		UserRepo:        deps.UserRepo,
		AppointmentRepo: deps.AppointmentRepo,
		ResultRepo:      deps.ResultRepo,
		TicketRepo:      deps.TicketRepo,
		Objects:         deps.S3Store,
	})

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(sessionSvc)
	userH := handler.NewUserHandler(userSvc)
	notifH := handler.NewNotificationHandler(notifSvc)
	settingsH := handler.NewSettingsHandler(settingsSvc, userSvc)
	apptH := handler.NewAppointmentHandler(apptSvc)
	resultH := handler.NewResultHandler(resultSvc)
	supportH := handler.NewSupportHandler(supportSvc, userSvc)
	exportH := handler.NewExportHandler(exportSvc)
	pwH := handler.NewPasswordRecoveryHandler(authSvc)
	broadcastH := handler.NewBroadcastHandler(publisher)
	secAlertH := handler.NewSecurityAlertHandler(notifSvc)

	wsHandler := realtime.NewHandler(deps.Hub, &wsTokenVerifier{provider: deps.JWTProvider}, cfg.AllowedOrigins)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", sessionH.Login)
		r.Post("/sessions/refresh", sessionH.Refresh)
		r.With(sensitiveRL.Limit).Post("/users", userH.Register)
		r.With(sensitiveRL.Limit).Post("/password-recovery/{action}", pwH.Action)

		// Ticket creation accepts guests; a bearer token fills in the contact.
		r.With(optionalAuthMw).Post("/support/tickets", supportH.Create)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)

			r.Get("/users/{id}", userH.Get)
			r.Put("/users/{id}", userH.Update)

			r.Get("/notifications", notifH.List)
			r.Get("/notifications/unread", notifH.ListUnread)
			r.Get("/notifications/deliveries", notifH.DeliveryHistory)
			r.Post("/notifications/test", notifH.SendTest)
			r.Put("/notifications/read-all", notifH.MarkAllAsRead)
			r.Put("/notifications/{id}", notifH.MarkAsRead)
			r.Delete("/notifications/{id}", notifH.Delete)

			r.Get("/settings/notifications", settingsH.Get)
			r.Put("/settings/notifications", settingsH.Update)
			r.Post("/settings/notifications/reset", settingsH.Reset)
			r.Get("/settings/notifications/summary", settingsH.Summary)
			r.Post("/settings/device", settingsH.RegisterDevice)
			r.Delete("/settings/device", settingsH.UnregisterDevice)
			r.Get("/settings/security", settingsH.GetSecurity)
			r.Put("/settings/security", settingsH.UpdateSecurity)

			r.Post("/appointments", apptH.Schedule)
			r.Get("/appointments", apptH.List)
			r.Get("/appointments/{id}", apptH.Get)
			r.Put("/appointments/{id}/status", apptH.UpdateStatus)

			r.Get("/results", resultH.List)
			r.Get("/results/{id}", resultH.Get)

			r.Get("/support/tickets", supportH.List)

			r.Post("/exports", exportH.Create)
			r.Get("/exports", exportH.List)
			r.Get("/exports/{id}/download", exportH.DownloadURL)

			r.Post("/password-recovery/change-password", pwH.ChangePassword)

			// Clinical roles upload results.
			r.With(appmiddleware.RequireRole(domain.RoleAdmin, domain.RoleDoctor)).
				Post("/results", resultH.Upload)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Get("/users", userH.List)
				r.Delete("/users/{id}", userH.Delete)
				r.Post("/support/tickets/{ticketNumber}/reply", supportH.AgentReply)
				r.Post("/broadcasts", broadcastH.Announce)
				r.Post("/security-alerts", secAlertH.Send)
			})
		})
	})

	// The realtime handshake authenticates via query parameter, not the
	// Authorization header, so the handler mounts outside the auth group.
	r.Get("/ws", wsHandler.ServeHTTP)

	return r
}
