package host

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/wavehost/internal/models"
	"github.com/samcharles93/wavehost/pkg/wavemodel"
)

const envKernelsDir = "WAVEHOST_KERNELS_DIR"

// Factory builds a model by registry name.
type Factory func(name string, opts models.Options) (wavemodel.Model, error)

// Session owns one model instance. Every call on the instance goes through
// SessionStore.With, which holds the session lock.
type Session struct {
	ID        string
	Model     string
	Options   models.Options
	CreatedAt time.Time

	mu   sync.Mutex
	inst *wavemodel.Instance
}

// Instance returns the session's model instance. Callers must hold the
// session through SessionStore.With.
func (s *Session) Instance() *wavemodel.Instance {
	return s.inst
}

type SessionStoreConfig struct {
	// KernelsDir resolves relative kernel_path options. Falls back to
	// $WAVEHOST_KERNELS_DIR.
	KernelsDir string
	// Factory defaults to models.New.
	Factory Factory
}

type SessionStore struct {
	cfg      SessionStoreConfig
	mu       sync.Mutex
	sessions map[string]*Session
	clock    func() time.Time
}

func NewSessionStore(cfg SessionStoreConfig) *SessionStore {
	if cfg.Factory == nil {
		cfg.Factory = models.New
	}
	return &SessionStore{
		cfg:      cfg,
		sessions: make(map[string]*Session),
		clock:    time.Now,
	}
}

// Create builds the named model and registers a new session for it.
func (s *SessionStore) Create(name string, opts models.Options) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newInvalidRequest("model is required")
	}
	if opts.KernelPath != "" {
		path, err := s.resolveKernelPath(opts.KernelPath)
		if err != nil {
			return nil, err
		}
		opts.KernelPath = path
	}
	m, err := s.cfg.Factory(name, opts)
	if errors.Is(err, models.ErrUnknownModel) {
		return nil, err
	}
	if err != nil {
		return nil, newInvalidRequest(fmt.Sprintf("model %s: %v", name, err))
	}

	sess := &Session{
		ID:        "sess_" + uuid.NewString(),
		Model:     name,
		Options:   opts,
		CreatedAt: s.clock(),
		inst:      wavemodel.NewInstance(m),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess, nil
}

func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// IDs returns the live session IDs in sorted order.
func (s *SessionStore) IDs() []string {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	slices.Sort(ids)
	return ids
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// With runs fn while holding the session lock, so forward passes and
// lifecycle calls on one session never overlap.
func (s *SessionStore) With(ctx context.Context, id string, fn func(sess *Session) error) error {
	sess, ok := s.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(sess)
}

func (s *SessionStore) kernelsDir() string {
	if s.cfg.KernelsDir != "" {
		return s.cfg.KernelsDir
	}
	return strings.TrimSpace(os.Getenv(envKernelsDir))
}

// resolveKernelPath keeps kernel files inside the kernels directory. A bare
// name gets the .safetensors extension appended when needed.
func (s *SessionStore) resolveKernelPath(p string) (string, error) {
	dir := s.kernelsDir()
	if dir == "" {
		return "", newInvalidRequest("kernel_path requires a kernels directory")
	}
	if filepath.IsAbs(p) || strings.Contains(p, "..") {
		return "", newInvalidRequest(fmt.Sprintf("kernel_path %q must be relative to the kernels directory", p))
	}
	for _, candidate := range []string{p, p + ".safetensors"} {
		full := filepath.Join(dir, candidate)
		if st, err := os.Stat(full); err == nil && !st.IsDir() {
			return full, nil
		}
	}
	return "", newInvalidRequest(fmt.Sprintf("kernel %q not found", p))
}
