package exams

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"exam-bridge/internal/errs"
	"exam-bridge/internal/session"
	"exam-bridge/internal/upstream"
	"exam-bridge/pkg"
)

const examsPath = "/WebUntis/api/exams"

type Fetcher interface {
	GetExams(ctx context.Context, token string, startDate, endDate pkg.Date) ([]Exam, error)
}

type examsResponse struct {
	Data *struct {
		Exams json.RawMessage `json:"exams"`
	} `json:"data"`
}

type fetcher struct {
	cli    *upstream.Client
	store  session.Store
	scheme string
}

func NewFetcher(cli *upstream.Client, store session.Store, scheme string) Fetcher {
	if scheme == "" {
		scheme = "https"
	}
	return &fetcher{
		cli:    cli,
		store:  store,
		scheme: scheme,
	}
}

func (f *fetcher) GetExams(ctx context.Context, token string, startDate, endDate pkg.Date) ([]Exam, error) {
	s, ok := f.store.Get(token)
	if !ok {
		log.Warn().Int("active_sessions", f.store.Len()).Msg("session not found")
		return nil, errs.Unauthenticated("invalid session")
	}

	log.Debug().Object("session", s).Msg("found session")

	list, err := f.fetch(ctx, s, startDate, endDate)
	if err != nil {
		log.Error().Err(err).Object("session", s).Msg("error getting exams")
		return nil, err
	}
	return list, nil
}

func (f *fetcher) fetch(ctx context.Context, s session.Session, startDate, endDate pkg.Date) ([]Exam, error) {
	q := url.Values{}
	q.Set("startDate", startDate.Compact())
	q.Set("endDate", endDate.Compact())
	URL := upstream.BaseURL(f.scheme, s.School.Server) + examsPath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cookie", s.Credential())

	resp, err := f.cli.Do("get_exams", req)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, errs.Upstream(string(resp.Body), nil)
	}

	var envelope examsResponse
	if err := json.Unmarshal(resp.Body, &envelope); err != nil {
		return nil, errs.Protocol("failed to parse exams response", err)
	}
	if envelope.Data == nil {
		return nil, errs.Protocol("failed to get property 'data'", nil)
	}
	if len(envelope.Data.Exams) == 0 {
		return nil, errs.Protocol("failed to get property 'exams'", nil)
	}

	var records []record
	if err := json.Unmarshal(envelope.Data.Exams, &records); err != nil {
		return nil, errs.Protocol("failed to deserialize exams", err)
	}
	if records == nil {
		return nil, errs.Protocol("failed to deserialize exams", nil)
	}

	list := make([]Exam, 0, len(records))
	for i, r := range records {
		e, err := r.exam()
		if err != nil {
			return nil, errs.Protocol("failed to deserialize exams", fmt.Errorf("exam %d: %w", i, err))
		}
		list = append(list, e)
	}
	return list, nil
}

// record is an exam as the upstream sends it. Date and times must be
// integers, a missing or null value is rejected.
type record struct {
	Type        *string `json:"examType"`
	Name        *string `json:"name"`
	ExamDate    *int    `json:"examDate"`
	StartTime   *int    `json:"startTime"`
	EndTime     *int    `json:"endTime"`
	Subject     *string `json:"subject"`
	Description *string `json:"text"`
}

func (r record) exam() (Exam, error) {
	switch {
	case r.ExamDate == nil:
		return Exam{}, fmt.Errorf("missing examDate")
	case r.StartTime == nil:
		return Exam{}, fmt.Errorf("missing startTime")
	case r.EndTime == nil:
		return Exam{}, fmt.Errorf("missing endTime")
	}
	return Exam{
		Type:        r.Type,
		Name:        r.Name,
		Date:        pkg.DecodeDate(*r.ExamDate),
		StartTime:   pkg.DecodeTime(*r.StartTime),
		EndTime:     pkg.DecodeTime(*r.EndTime),
		Subject:     r.Subject,
		Description: r.Description,
	}, nil
}
