// Package server runs stale approval dismissals in response to GitHub webhook
// events, instead of a single run in a GitHub Actions workflow.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	gh "github.com/google/go-github/v71/github"

	"github.com/tzrikka/unapprove/internal/logger"
	"github.com/tzrikka/unapprove/pkg/config"
)

const shutdownTimeout = 10 * time.Second

// Runner executes a single run for a specific PR.
type Runner func(ctx context.Context, cfg config.Config) error

// Server receives GitHub webhook events, and triggers a background
// run for each event which may make existing approvals stale.
type Server struct {
	cfg     config.Config
	secret  []byte
	run     Runner
	timeout time.Duration
	logger  *slog.Logger
	router  *chi.Mux
	runs    sync.WaitGroup
}

// New initializes a webhook server. The given configuration is the
// base for all runs, each of them overrides only the repository and PR.
func New(ctx context.Context, cfg config.Config, secret string, run Runner) *Server {
	s := &Server{
		cfg:     cfg,
		secret:  []byte(secret),
		run:     run,
		timeout: config.WebhookRunTimeout,
		logger:  logger.FromContext(ctx),
		router:  chi.NewRouter(),
	}

	s.router.Use(middleware.Recoverer)
	s.router.Get("/healthz", s.healthz)
	s.router.Post("/webhook", s.webhook)
	return s
}

func (s *Server) Router() http.Handler { return s.router }

// ListenAndServe serves HTTP requests until the context is canceled,
// and then waits for all the runs in progress to complete.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("failed to shut down HTTP server", slog.Any("error", err))
		}
	}()

	s.logger.Info("webhook server listening", slog.String("address", addr))
	err := srv.ListenAndServe()
	s.Wait()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Wait blocks until all the runs in progress are done.
func (s *Server) Wait() {
	s.runs.Wait()
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) webhook(w http.ResponseWriter, r *http.Request) {
	l := s.logger.With(slog.String("delivery_id", gh.DeliveryID(r)))

	payload, err := gh.ValidatePayload(r, s.secret)
	if err != nil {
		l.Warn("rejected GitHub webhook event", slog.Any("error", err))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	eventType := gh.WebHookType(r)
	if eventType != "pull_request" && eventType != "pull_request_review" {
		l.Debug("ignoring GitHub webhook event", slog.String("event", eventType))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	event, err := gh.ParseWebHook(eventType, payload)
	if err != nil {
		l.Warn("failed to parse GitHub webhook event", slog.Any("error", err), slog.String("event", eventType))
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	repo, number, ok := pullRequestOf(event)
	if !ok {
		l.Debug("ignoring GitHub webhook event", slog.String("event", eventType))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	owner, name := repo.GetOwner().GetLogin(), repo.GetName()
	if owner == "" || name == "" || number <= 0 {
		l.Warn("GitHub webhook event without PR details", slog.String("event", eventType))
		http.Error(w, "missing PR details", http.StatusBadRequest)
		return
	}

	s.trigger(s.cfg.ForPR(owner, name, number), l)
	w.WriteHeader(http.StatusAccepted)
}

// pullRequestOf returns the repository and PR number of events which may make
// existing approvals stale. It returns false for all other events and actions.
func pullRequestOf(event any) (*gh.Repository, int, bool) {
	switch e := event.(type) {
	case *gh.PullRequestEvent:
		switch e.GetAction() {
		case "opened", "reopened", "synchronize":
			return e.GetRepo(), e.GetPullRequest().GetNumber(), true
		}
	case *gh.PullRequestReviewEvent:
		if e.GetAction() == "submitted" {
			return e.GetRepo(), e.GetPullRequest().GetNumber(), true
		}
	}
	return nil, 0, false
}

// trigger starts a run in the background. It is detached from the HTTP request,
// so GitHub doesn't have to wait for it, but it is still bounded by a timeout.
func (s *Server) trigger(cfg config.Config, l *slog.Logger) {
	l = l.With(slog.String("repo", cfg.Owner+"/"+cfg.Repo), slog.Int("pr_id", cfg.PRNumber))
	l.Info("triggering run for GitHub webhook event")

	s.runs.Go(func() {
		ctx, cancel := context.WithTimeout(logger.WithContext(context.Background(), l), s.timeout)
		defer cancel()

		if err := s.run(ctx, cfg); err != nil {
			l.Error("run failed", slog.Any("error", err))
		}
	})
}
