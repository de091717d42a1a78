package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
	"github.com/mind-engage/mindengage-quiz/internal/users"
)

type Deps struct {
	Quiz     *quiz.Service
	Users    *users.Service
	Auth     *auth.AuthService
	DB       *sql.DB
	Validate *validator.Validate
	Events   EventLog

	CORSOrigins    []string
	EnableGuest    bool
	RequestTimeout time.Duration

	// Ready reports whether backing services are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	if d.Validate == nil {
		d.Validate = users.NewValidator()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	v := d.Validate
	r.Route("/api", func(ar chi.Router) {
		// Public
		ar.Post("/auth/register", RegisterHandler(d.Users))
		ar.Post("/auth/login", LoginHandler(d.Users))
		if d.EnableGuest {
			ar.Post("/auth/guest", GuestHandler(d.Users))
		}
		ar.Get("/tests/link/{token}", TestByLinkHandler(d.Quiz))

		// Protected (JWT -> stored role -> RBAC)
		ar.Group(func(pr chi.Router) {
			pr.Use(auth.JWTMiddleware(d.Auth, writeError))
			pr.Use(auth.AttachRoleFromDB(d.DB, writeError))

			pr.With(rbac.Require("profile:view")).Get("/auth/profile", ProfileHandler(d.Users))
			pr.With(rbac.Require("profile:update")).Put("/auth/profile", UpdateProfileHandler(d.Users))

			// Authoring
			pr.With(rbac.Require("test:view")).Get("/tests", ListTestsHandler(d.Quiz))
			pr.With(rbac.Require("test:create")).Post("/tests", CreateTestHandler(d.Quiz, v))
			pr.With(rbac.Require("test:view")).Get("/tests/{testID}", GetTestHandler(d.Quiz))
			pr.With(rbac.Require("test:update")).Put("/tests/{testID}", UpdateTestHandler(d.Quiz, v))
			pr.With(rbac.Require("test:delete")).Delete("/tests/{testID}", DeleteTestHandler(d.Quiz))
			pr.With(rbac.Require("test:publish")).Post("/tests/{testID}/publish", PublishTestHandler(d.Quiz))

			pr.With(rbac.Require("question:create")).
				Post("/tests/{testID}/questions", CreateQuestionHandler(d.Quiz, v))
			pr.With(rbac.Require("question:update")).
				Put("/tests/{testID}/questions/{questionID}", UpdateQuestionHandler(d.Quiz, v))
			pr.With(rbac.Require("question:delete")).
				Delete("/tests/{testID}/questions/{questionID}", DeleteQuestionHandler(d.Quiz))

			// Respondent flow
			pr.With(rbac.Require("attempt:start")).
				Post("/tests/{testID}/attempts", StartAttemptHandler(d.Quiz))
			pr.With(rbac.Require("attempt:answer")).
				Post("/attempts/{attemptID}/answers", SubmitAnswerHandler(d.Quiz, v))
			pr.With(rbac.Require("attempt:finish")).
				Post("/attempts/{attemptID}/finish", FinishAttemptHandler(d.Quiz))
			pr.With(rbac.Require("attempt:view")).
				Get("/attempts/{attemptID}/results", ResultsHandler(d.Quiz))
			pr.With(rbac.Require("attempt:view")).Get("/attempts", ListMyAttemptsHandler(d.Quiz))

			// Statistics
			pr.With(rbac.Require("stats:view")).Get("/tests/{testID}/statistics", TestStatsHandler(d.Quiz))
			pr.With(rbac.Require("stats:view")).Get("/tests/{testID}/attempts", TestAttemptsHandler(d.Quiz))
			pr.With(rbac.RequireAny("stats:view", "attempt:view")).Get("/statistics/user", UserStatsHandler(d.Quiz))

			// Admin
			pr.With(rbac.Require("users:set_role")).
				Put("/admin/users/{userID}/role", AdminUpdateUserRoleHandler(d.Users))
			if d.Events != nil {
				pr.With(rbac.Require("events:view")).Get("/admin/events", AdminEventsHandler(d.Events))
			}
		})
	})
	return r
}
