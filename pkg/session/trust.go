package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/corbat-tech/coco/pkg/confirm"
)

// TrustRecord is the persisted shape of one trusted tool: trusted globally
// or for specific project paths.
type TrustRecord struct {
	Global   bool     `json:"global,omitempty"`
	Projects []string `json:"projects,omitempty"`
}

type trustFile struct {
	Tools map[string]TrustRecord `json:"tools"`
}

// FileTrustStore persists trust records as one JSON file. Writes are
// read-modify-write on the single affected entry; unrelated entries are
// never dropped.
type FileTrustStore struct {
	mu   sync.Mutex
	path string
}

func NewFileTrustStore(path string) *FileTrustStore {
	return &FileTrustStore{path: path}
}

// DefaultTrustPath returns the per-user trust file location.
func DefaultTrustPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve user config dir")
	}
	return filepath.Join(dir, "coco", "trusted-tools.json"), nil
}

func (s *FileTrustStore) load() (*trustFile, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &trustFile{Tools: map[string]TrustRecord{}}, nil
		}
		return nil, errors.Wrap(err, "read trust file")
	}
	var tf trustFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return nil, errors.Wrap(err, "unmarshal trust file")
	}
	if tf.Tools == nil {
		tf.Tools = map[string]TrustRecord{}
	}
	return &tf, nil
}

// Load returns the tools trusted for the given project path (or globally).
func (s *FileTrustStore) Load(projectPath string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tf, err := s.load()
	if err != nil {
		return nil, err
	}

	var names []string
	for name, rec := range tf.Tools {
		if rec.Global {
			names = append(names, name)
			continue
		}
		for _, p := range rec.Projects {
			if p == projectPath {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// Save records trust for one tool, either globally or for a project path.
// The update touches only the named entry.
func (s *FileTrustStore) Save(name, projectPath string, global bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tf, err := s.load()
	if err != nil {
		return err
	}

	rec := tf.Tools[name]
	if global {
		rec.Global = true
	} else if projectPath != "" {
		found := false
		for _, p := range rec.Projects {
			if p == projectPath {
				found = true
				break
			}
		}
		if !found {
			rec.Projects = append(rec.Projects, projectPath)
		}
	}
	tf.Tools[name] = rec

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return errors.Wrap(err, "create trust dir")
	}
	b, err := json.MarshalIndent(tf, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal trust file")
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return errors.Wrap(err, "write trust file")
	}

	log.Debug().Str("tool", name).Bool("global", global).Msg("session: persisted trusted tool")
	return nil
}

// TrustSet is the session-scoped trusted-tool set backing the confirmation
// gate. The in-memory set lives for the session; Persist writes through to
// the optional file store.
type TrustSet struct {
	mu          sync.RWMutex
	names       map[string]struct{}
	store       *FileTrustStore
	projectPath string
	global      bool
}

var _ confirm.TrustStore = (*TrustSet)(nil)

type TrustSetOption func(*TrustSet)

// WithTrustFile attaches a file store and preloads the tools trusted for the
// project.
func WithTrustFile(store *FileTrustStore) TrustSetOption {
	return func(t *TrustSet) { t.store = store }
}

// WithProjectPath scopes persisted trust to one project instead of globally.
func WithProjectPath(path string) TrustSetOption {
	return func(t *TrustSet) {
		t.projectPath = path
		t.global = false
	}
}

func NewTrustSet(opts ...TrustSetOption) *TrustSet {
	t := &TrustSet{
		names:  map[string]struct{}{},
		global: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.store != nil {
		names, err := t.store.Load(t.projectPath)
		if err != nil {
			log.Warn().Err(err).Msg("session: failed to load trusted tools")
		}
		for _, n := range names {
			t.names[n] = struct{}{}
		}
	}
	return t
}

func (t *TrustSet) IsTrusted(name string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.names[name]
	return ok
}

func (t *TrustSet) Add(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names[name] = struct{}{}
}

func (t *TrustSet) Persist(_ context.Context, name string) error {
	if t.store == nil {
		return nil
	}
	return t.store.Save(name, t.projectPath, t.global)
}

// Names returns the trusted tools, sorted.
func (t *TrustSet) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.names))
	for n := range t.names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
