package session

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"exam-bridge/internal/directory"
)

const (
	CookieSessionID  = "JSESSIONID"
	CookieSchoolName = "schoolname"
)

// Session binds an opaque token to the cookie pair captured at login.
// UpstreamSessionID and UpstreamSchoolTag are as sensitive as a password.
type Session struct {
	School            directory.School
	Username          string
	UpstreamSessionID string
	UpstreamSchoolTag string
	CreatedAt         time.Time
}

// Credential rebuilds the Cookie header the upstream expects.
func (s Session) Credential() string {
	return CookieSessionID + "=" + s.UpstreamSessionID + "; " + CookieSchoolName + "=" + s.UpstreamSchoolTag
}

// String omits the cookie values.
func (s Session) String() string {
	return fmt.Sprintf("session{user=%s school=%s created=%s}", s.Username, s.School.LoginName, s.CreatedAt.Format(time.RFC3339))
}

func (s Session) MarshalZerologObject(e *zerolog.Event) {
	e.Str("user", s.Username).
		Str("school", s.School.LoginName).
		Time("created_at", s.CreatedAt)
}
