package pkg

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

const FORMAT1 = "2006-01-02"

// Date is a calendar day without a time zone.
// Components are not validated, month 13 is kept as-is.
type Date struct {
	Year  int
	Month int
	Day   int
}

// Clock is a wall-clock time of day without a time zone.
type Clock struct {
	Hour   int
	Minute int
}

// DecodeDate splits a YYYYMMDD integer into its components.
func DecodeDate(n int) Date {
	return Date{Year: n / 10000, Month: n / 100 % 100, Day: n % 100}
}

// DecodeTime splits an HHMM integer into its components.
func DecodeTime(n int) Clock {
	return Clock{Hour: n / 100, Minute: n % 100}
}

func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// ParseDate parses the ISO form used by inbound requests.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(FORMAT1, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Compact renders the date as YYYYMMDD for upstream query parameters.
func (d Date) Compact() string {
	return fmt.Sprintf("%04d%02d%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether d was never set.
func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts the ISO form of inbound requests. null leaves d unset.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Combine joins a date and a time of day into a naive local instant.
func Combine(d Date, c Clock) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, c.Hour, c.Minute, 0, 0, time.Local)
}

// RequestID returns a correlation id for the upstream directory, e.g. "wu_schulsuche-1718000000000".
func RequestID(prefix string, now time.Time) string {
	return prefix + "-" + strconv.FormatInt(now.UnixMilli(), 10)
}
