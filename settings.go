package sokoni

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// Settings is a small mutable document of platform-wide knobs persisted as a
// JSON file next to the database. It is not configuration: configuration
// comes from the environment at boot, settings change at runtime through the
// admin surface.
type Settings struct {
	mu     sync.Mutex
	path   string
	logger Logger
}

func defaultSettings() map[string]any {
	return map[string]any{
		"theme":       "dark",
		"platformFee": 0.2,
		"featureFlags": map[string]any{
			"payouts":  true,
			"listings": true,
		},
		"approvals": map[string]any{
			"autoApproveCeo": true,
		},
		"categories": []any{
			"design", "development", "writing", "marketing",
		},
	}
}

func NewSettings(path string) *Settings {
	return &Settings{
		path:   path,
		logger: defLogger{},
	}
}

func (s *Settings) WithLogger(l Logger) *Settings {
	if l != nil {
		s.logger = l
	}
	return s
}

// All returns the current settings merged over the defaults, so new keys
// appear for documents written by older builds.
func (s *Settings) All() (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Update merges the given patch into the stored document and writes it back.
// Returns the document after the merge.
func (s *Settings) Update(patch map[string]any) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil {
		return nil, err
	}

	for k, v := range patch {
		current[k] = v
	}

	if err := s.store(current); err != nil {
		return nil, err
	}

	s.logger.Info("settings updated", "keys", len(patch))

	return current, nil
}

func (s *Settings) load() (map[string]any, error) {
	out := defaultSettings()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read settings file")
	}

	stored := map[string]any{}
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "settings file is not valid JSON")
	}

	for k, v := range stored {
		out[k] = v
	}

	return out, nil
}

func (s *Settings) store(doc map[string]any) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode settings")
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create settings directory")
		}
	}

	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to write settings file")
	}

	return nil
}
