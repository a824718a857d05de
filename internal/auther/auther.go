package auther

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"exam-bridge/internal/directory"
	"exam-bridge/internal/metrics"
	"exam-bridge/internal/session"
	"exam-bridge/internal/upstream"
)

const (
	loginPath = "/WebUntis/j_spring_security_check"

	invalidCredentialsMarker = "Invalid user name and/or password"

	MsgLoginSuccessful    = "login successful"
	MsgSchoolNotFound     = "school not found"
	MsgInvalidCredentials = "invalid username or password"
	MsgNoSessionCookies   = "session identifiers not found"
	MsgServerError        = "login failed due to server error"
)

// LoginOutcome is the result of a login attempt. SessionID is set only on success.
type LoginOutcome struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// Auther never returns an error from Login, every failure is an outcome.
type Auther interface {
	Login(ctx context.Context, school, username, password string) LoginOutcome
	Logout(ctx context.Context, token string)
}

type Options struct {
	Scheme   string // https unless overridden
	NewToken func() string
	Now      func() time.Time
}

type auther struct {
	dir    directory.Searcher
	cli    *upstream.Client
	store  session.Store
	m      *metrics.Metrics
	scheme string

	newToken func() string
	now      func() time.Time
}

func NewAuther(dir directory.Searcher, cli *upstream.Client, store session.Store, m *metrics.Metrics, opts Options) Auther {
	a := &auther{
		dir:      dir,
		cli:      cli,
		store:    store,
		m:        m,
		scheme:   opts.Scheme,
		newToken: opts.NewToken,
		now:      opts.Now,
	}
	if a.scheme == "" {
		a.scheme = "https"
	}
	if a.newToken == nil {
		a.newToken = uuid.NewString
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

func (a *auther) Login(ctx context.Context, school, username, password string) LoginOutcome {
	outcome, err := a.login(ctx, school, username, password)
	if err != nil {
		log.Error().Err(err).Str("user", username).Str("school", school).Msg("error during login")
		a.m.Logins.WithLabelValues("error").Inc()
		return LoginOutcome{Success: false, Message: MsgServerError}
	}

	if outcome.Success {
		a.m.Logins.WithLabelValues("success").Inc()
	} else {
		log.Warn().Str("user", username).Str("school", school).Str("reason", outcome.Message).Msg("login rejected")
		a.m.Logins.WithLabelValues("rejected").Inc()
	}
	return outcome
}

func (a *auther) login(ctx context.Context, schoolName, username, password string) (LoginOutcome, error) {
	schools, err := a.dir.SearchSchools(ctx, schoolName)
	if err != nil {
		return LoginOutcome{}, fmt.Errorf("failed to resolve school: %w", err)
	}

	school, ok := pickSchool(schools, schoolName)
	if !ok {
		return LoginOutcome{Success: false, Message: MsgSchoolNotFound}, nil
	}

	resp, err := a.submitCredentials(ctx, school, username, password)
	if err != nil {
		return LoginOutcome{}, err
	}

	body := string(resp.Body)
	if strings.Contains(body, invalidCredentialsMarker) {
		return LoginOutcome{Success: false, Message: MsgInvalidCredentials}, nil
	}
	if !resp.OK() {
		return LoginOutcome{Success: false, Message: body}, nil
	}

	cookies := resp.Header.Values("Set-Cookie")
	sessionID := cookieValue(cookies, session.CookieSessionID)
	schoolTag := strings.Trim(cookieValue(cookies, session.CookieSchoolName), `"`)
	if sessionID == "" || schoolTag == "" {
		return LoginOutcome{Success: false, Message: MsgNoSessionCookies}, nil
	}

	token := a.newToken()
	a.store.Put(token, session.Session{
		School:            school,
		Username:          username,
		UpstreamSessionID: sessionID,
		UpstreamSchoolTag: schoolTag,
		CreatedAt:         a.now().UTC(),
	})
	log.Info().Str("user", username).Str("school", school.LoginName).Msg("successfully created session")

	return LoginOutcome{Success: true, Message: MsgLoginSuccessful, SessionID: token}, nil
}

func (a *auther) submitCredentials(ctx context.Context, school directory.School, username, password string) (*upstream.Response, error) {
	form := url.Values{
		"school":     {school.LoginName},
		"j_username": {username},
		"j_password": {password},
		"token":      {""},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, upstream.BaseURL(a.scheme, school.Server)+loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return a.cli.Do("login", req)
}

func (a *auther) Logout(ctx context.Context, token string) {
	a.store.Delete(token)
	log.Info().Msg("session closed")
}

// pickSchool returns the first school whose login name matches exactly.
func pickSchool(schools []directory.School, loginName string) (directory.School, bool) {
	for _, s := range schools {
		if s.LoginName == loginName {
			return s, true
		}
	}
	return directory.School{}, false
}

// cookieValue returns the value of the first raw Set-Cookie entry starting
// with prefix: the text between the first '=' and the first ';'.
func cookieValue(setCookies []string, prefix string) string {
	for _, c := range setCookies {
		if !strings.HasPrefix(c, prefix) {
			continue
		}
		pair, _, _ := strings.Cut(c, ";")
		_, value, _ := strings.Cut(pair, "=")
		return value
	}
	return ""
}
