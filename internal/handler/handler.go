package handler

import (
	"context"

	"exam-bridge/internal/auther"
	"exam-bridge/internal/directory"
	"exam-bridge/internal/exams"
	"exam-bridge/internal/metrics"
	"exam-bridge/internal/session"
	"exam-bridge/internal/upstream"
	"exam-bridge/pkg"
)

// Handler is everything the HTTP layer may call. One instance owns the
// session store for the life of the process.
type Handler interface {
	SearchSchools(ctx context.Context, query string) ([]directory.School, error)
	Login(ctx context.Context, school, username, password string) auther.LoginOutcome
	Logout(ctx context.Context, sessionID string)
	GetExams(ctx context.Context, sessionID string, startDate, endDate pkg.Date) ([]exams.Exam, error)
}

type Config struct {
	DirectoryURL string
	Scheme       string
}

type handler struct {
	d directory.Searcher
	a auther.Auther
	f exams.Fetcher
}

func NewHandler(cli *upstream.Client, store session.Store, m *metrics.Metrics, cfg Config) Handler {
	m.TrackSessions(store.Len)

	d := directory.NewDirectory(cli, cfg.DirectoryURL)
	a := auther.NewAuther(d, cli, store, m, auther.Options{Scheme: cfg.Scheme})
	f := exams.NewFetcher(cli, store, cfg.Scheme)

	return &handler{
		d: d,
		a: a,
		f: f,
	}
}

func (h *handler) SearchSchools(ctx context.Context, query string) ([]directory.School, error) {
	return h.d.SearchSchools(ctx, query)
}

func (h *handler) Login(ctx context.Context, school, username, password string) auther.LoginOutcome {
	return h.a.Login(ctx, school, username, password)
}

func (h *handler) Logout(ctx context.Context, sessionID string) {
	h.a.Logout(ctx, sessionID)
}

func (h *handler) GetExams(ctx context.Context, sessionID string, startDate, endDate pkg.Date) ([]exams.Exam, error) {
	return h.f.GetExams(ctx, sessionID, startDate, endDate)
}
