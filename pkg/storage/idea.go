package storage

import (
	"errors"
	"time"
)

// Idea is one successfully completed generation.
type Idea struct {
	ID          string    `json:"id"`
	Agent       string    `json:"agent"`
	Model       string    `json:"model"`
	Prompt      string    `json:"prompt"`
	Text        string    `json:"text"`
	Fragments   int       `json:"fragments"`
	Subject     string    `json:"subject,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// Validate reports whether the idea can be stored.
func (i *Idea) Validate() error {
	if i == nil {
		return errors.New("cannot store nil idea")
	}
	if i.ID == "" {
		return errors.New("idea id is required")
	}
	return nil
}
