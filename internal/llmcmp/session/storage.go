package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrNotFound is returned when no transcript matches an ID.
var ErrNotFound = errors.New("transcript not found")

// AmbiguousIDError is returned when multiple transcripts match a prefix
type AmbiguousIDError struct {
	Prefix  string
	Matches []Transcript
}

func (e *AmbiguousIDError) Error() string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Ambiguous session ID %q. Multiple matches found:", e.Prefix))
	for _, match := range e.Matches {
		lines = append(lines, fmt.Sprintf("- %s (%s, %s, %d turns)",
			match.GetShortID(),
			match.ModelsString(),
			match.CreatedAt.Format("2006-01-02"),
			match.TurnCount()))
	}
	lines = append(lines, "")
	lines = append(lines, "Please use a longer prefix or run 'llmcmp sessions list'.")
	return strings.Join(lines, "\n")
}

// DefaultDir returns the directory where transcripts are stored.
// If a config file is used, transcripts live next to it in "sessions".
// Otherwise, defaults to $HOME/.config/llmcmp/sessions
func DefaultDir() (string, error) {
	configFile := viper.ConfigFileUsed()

	if configFile != "" {
		configDir := filepath.Dir(configFile)
		if !filepath.IsAbs(configDir) {
			cwd, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("failed to get current working directory: %w", err)
			}
			configDir = filepath.Join(cwd, configDir)
		}
		return filepath.Join(configDir, "sessions"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "llmcmp", "sessions"), nil
}

// Storage keeps transcripts as JSON files in one directory.
type Storage struct {
	dir string
}

// NewStorage returns a storage rooted at dir.
func NewStorage(dir string) *Storage {
	return &Storage{dir: dir}
}

// Dir returns the storage directory.
func (s *Storage) Dir() string {
	return s.dir
}

func (s *Storage) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes a transcript to disk
func (s *Storage) Save(t *Transcript) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	if err := os.WriteFile(s.path(t.ID), data, 0600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// Load reads a transcript by full ID
func (s *Storage) Load(id string) (*Transcript, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s\n\nRun 'llmcmp sessions list' to see available sessions.", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var t Transcript
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w\n\nThe session file may be corrupted.", err)
	}
	return &t, nil
}

// Delete removes a transcript by full ID
func (s *Storage) Delete(id string) error {
	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns all transcripts sorted by UpdatedAt (newest first).
// Unreadable files are skipped.
func (s *Storage) List() ([]Transcript, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session directory: %w", err)
	}

	var transcripts []Transcript
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		t, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			continue
		}
		transcripts = append(transcripts, *t)
	}

	sort.Slice(transcripts, func(i, j int) bool {
		return transcripts[i].UpdatedAt.After(transcripts[j].UpdatedAt)
	})
	return transcripts, nil
}

// FindByPrefix finds a transcript by ID prefix (minimum 4 characters).
// "latest" returns the most recently updated transcript.
func (s *Storage) FindByPrefix(prefix string) (*Transcript, error) {
	if prefix == "latest" {
		return s.Latest()
	}

	if len(prefix) < 4 {
		return nil, fmt.Errorf("session ID prefix must be at least 4 characters (got %d)", len(prefix))
	}

	if len(prefix) == 36 && strings.Count(prefix, "-") == 4 {
		return s.Load(prefix)
	}

	transcripts, err := s.List()
	if err != nil {
		return nil, err
	}

	var matches []Transcript
	for _, t := range transcripts {
		if strings.HasPrefix(t.ID, prefix) {
			matches = append(matches, t)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s\n\nRun 'llmcmp sessions list' to see available sessions.", ErrNotFound, prefix)
	case 1:
		return &matches[0], nil
	default:
		return nil, &AmbiguousIDError{Prefix: prefix, Matches: matches}
	}
}

// Latest returns the most recently updated transcript
func (s *Storage) Latest() (*Transcript, error) {
	transcripts, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(transcripts) == 0 {
		return nil, fmt.Errorf("%w: no sessions found\n\nStart one with: llmcmp compare \"your prompt\"", ErrNotFound)
	}
	return &transcripts[0], nil
}

// Prune deletes transcripts last updated before cutoff and returns how
// many were removed.
func (s *Storage) Prune(cutoff time.Time) (int, error) {
	return s.deleteWhere(func(t Transcript) bool { return t.UpdatedAt.Before(cutoff) })
}

// Clear deletes every transcript and returns how many were removed.
func (s *Storage) Clear() (int, error) {
	return s.deleteWhere(func(Transcript) bool { return true })
}

func (s *Storage) deleteWhere(match func(Transcript) bool) (int, error) {
	transcripts, err := s.List()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, t := range transcripts {
		if !match(t) {
			continue
		}
		if err := s.Delete(t.ID); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
