// Package audit persists failed identifier resolutions so that ambiguous
// models and malformed client requests can be inspected after the fact.
package audit

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/nlstn/odata-resolver/internal/resolver"
)

// Column sizes of the free-text Record fields.
const (
	maxIdentifierLen = 512
	maxMessageLen    = 1024
)

// Record is one persisted resolution outcome.
type Record struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt  time.Time `gorm:"index" json:"createdAt"`
	Element    string    `gorm:"size:32;index:idx_audit_element_outcome" json:"element"`
	Outcome    string    `gorm:"size:16;index:idx_audit_element_outcome" json:"outcome"`
	Identifier string    `gorm:"size:512" json:"identifier"`
	Target     string    `gorm:"size:512" json:"target,omitempty"`
	ErrorKind  string    `gorm:"size:48" json:"errorKind,omitempty"`
	Message    string    `gorm:"size:1024" json:"message,omitempty"`
	Matches    int       `json:"matches"`
}

// TableName overrides the gorm default.
func (Record) TableName() string {
	return "resolution_audit"
}

func newRecord(e resolver.Event, now time.Time) Record {
	r := Record{
		ID:         uuid.NewString(),
		CreatedAt:  now.UTC(),
		Element:    string(e.Element),
		Outcome:    e.Outcome.String(),
		Identifier: truncate(e.Identifier, maxIdentifierLen),
		Target:     truncate(e.Target, maxIdentifierLen),
		Matches:    e.Matches,
	}
	if e.Err != nil {
		r.ErrorKind = resolver.KindOf(e.Err).String()
		r.Message = truncate(e.Err.Error(), maxMessageLen)
	}
	return r
}

// truncate cuts s to at most n characters, the unit varchar sizes count in.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Count is one row of Store.Summary.
type Count struct {
	Element   string `json:"element"`
	Outcome   string `json:"outcome"`
	ErrorKind string `json:"errorKind,omitempty"`
	Total     int64  `json:"total"`
}
