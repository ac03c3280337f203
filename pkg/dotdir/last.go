package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	lastIdeaFile = "last_idea.json"
)

// LastIdea is the most recent idea received by the stream client, kept so
// that it can be shown again without a server round trip.
type LastIdea struct {
	Text       string    `json:"text"`
	Source     string    `json:"source"`
	ReceivedAt time.Time `json:"received_at"`
}

// LoadLastIdea loads the last idea from a target .ideas/last_idea.json.
// Returns nil, nil if no idea has been received yet.
// If overrideDir is non-empty, it is used instead of the default location.
func (m *Manager) LoadLastIdea(overrideDir string) (*LastIdea, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(dir, lastIdeaFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading last idea: %w", err)
	}

	idea := &LastIdea{}
	if err := json.Unmarshal(data, idea); err != nil {
		return nil, fmt.Errorf("parsing last idea: %w", err)
	}

	return idea, nil
}

// SaveLastIdea persists idea to a target .ideas/last_idea.json.
func (m *Manager) SaveLastIdea(idea *LastIdea, overrideDir string) error {
	if idea == nil {
		return errors.New("cannot save nil idea")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(idea, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling last idea: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, lastIdeaFile), data, 0o600); err != nil {
		return fmt.Errorf("writing last idea: %w", err)
	}

	return nil
}

// ClearLastIdea removes the last idea file. Returns nil if it doesn't exist.
func (m *Manager) ClearLastIdea(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(dir, lastIdeaFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing last idea: %w", err)
	}

	return nil
}
