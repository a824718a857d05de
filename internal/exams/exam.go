package exams

import (
	"time"

	"exam-bridge/pkg"
)

// Exam is one scheduled exam as the upstream reports it. Dates and times
// arrive as YYYYMMDD / HHMM integers and leave as ISO strings.
type Exam struct {
	Type        *string   `json:"examType"`
	Name        *string   `json:"name"`
	Date        pkg.Date  `json:"examDate"`
	StartTime   pkg.Clock `json:"startTime"`
	EndTime     pkg.Clock `json:"endTime"`
	Subject     *string   `json:"subject"`
	Description *string   `json:"text"`
}

func (e Exam) Start() time.Time {
	return pkg.Combine(e.Date, e.StartTime)
}

func (e Exam) End() time.Time {
	return pkg.Combine(e.Date, e.EndTime)
}

// Key identifies an exam across fetches. Subject, type and description are
// left out, the same exam may come back with different metadata.
type Key struct {
	Name      string
	HasName   bool
	Date      pkg.Date
	StartTime pkg.Clock
	EndTime   pkg.Clock
}

func (e Exam) Key() Key {
	k := Key{Date: e.Date, StartTime: e.StartTime, EndTime: e.EndTime}
	if e.Name != nil {
		k.Name, k.HasName = *e.Name, true
	}
	return k
}

func (e Exam) Equal(o Exam) bool {
	return e.Key() == o.Key()
}
