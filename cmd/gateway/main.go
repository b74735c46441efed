package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	api "github.com/openexam/examportal/internal/api/http"
	"github.com/openexam/examportal/internal/audit"
	"github.com/openexam/examportal/internal/auth"
	"github.com/openexam/examportal/internal/config"
	"github.com/openexam/examportal/internal/db"
	"github.com/openexam/examportal/internal/exam"
	"github.com/openexam/examportal/internal/history"
	"github.com/openexam/examportal/internal/rbac"
	"github.com/openexam/examportal/internal/session"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(lvl)
	}

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		logrus.WithError(err).Fatal("db open failed")
	}
	store := exam.NewSQLStore(dbh)
	events := audit.NewEventRepo(dbh)
	sessions := session.NewManager(store, events)
	results := history.NewService(store)

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/register", auth.RegisterHandler(dbh, authSvc))
	r.Post("/auth/login", auth.LoginHandler(dbh, authSvc))

	// Protected API (JWT → subject+role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("profile:view")).Get("/profile", auth.GetProfileHandler(dbh))
		pr.With(rbac.Require("profile:update")).Put("/profile", auth.UpdateProfileHandler(dbh))

		// Admin: exam and question authoring
		pr.With(rbac.Require("exam:create")).Post("/exams", api.CreateExamHandler(store))
		pr.With(rbac.Require("exam:update")).Put("/exams/{examID}", api.UpdateExamHandler(store))
		pr.With(rbac.Require("exam:update")).Patch("/exams/{examID}/active", api.SetExamActiveHandler(store))
		pr.With(rbac.Require("exam:delete")).Delete("/exams/{examID}", api.DeleteExamHandler(store))
		pr.With(rbac.Require("question:create")).Post("/exams/{examID}/questions", api.CreateQuestionHandler(store))
		pr.With(rbac.Require("question:update")).Put("/exams/{examID}/questions/{questionID}", api.UpdateQuestionHandler(store))
		pr.With(rbac.Require("question:delete")).Delete("/exams/{examID}/questions/{questionID}", api.DeleteQuestionHandler(store))

		// Student/admin: browsing
		pr.With(rbac.Require("exam:view")).Get("/exams", api.ListExamsHandler(store))
		pr.With(rbac.Require("exam:view")).Get("/exams/{examID}", api.GetExamHandler(store))
		pr.With(rbac.Require("exam:view")).Get("/exams/{examID}/questions", api.ListQuestionsHandler(store))

		// Student flow
		pr.With(rbac.Require("attempt:create")).Post("/attempts", api.StartAttemptHandler(sessions))
		pr.With(rbac.Require("attempt:answer")).Post("/attempts/{attemptID}/answers", api.AnswerHandler(sessions))
		pr.With(rbac.Require("attempt:answer")).Post("/attempts/{attemptID}/navigate", api.NavigateHandler(sessions))
		pr.With(rbac.Require("attempt:submit")).Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(sessions, store))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(sessions, store))

		pr.With(rbac.Require("history:view-own")).Get("/history", api.HistoryHandler(results))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	logrus.WithFields(logrus.Fields{"addr": cfg.HTTPAddr, "db": cfg.DBDriver}).Info("listening")
	logrus.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
