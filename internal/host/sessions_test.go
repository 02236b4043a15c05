package host

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samcharles93/wavehost/internal/models"
)

func TestSessionStoreWith(t *testing.T) {
	t.Parallel()
	store := NewSessionStore(SessionStoreConfig{})

	sess, err := store.Create(" gain ", models.Options{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.Model != "gain" {
		t.Fatalf("expected trimmed model name, got %q", sess.Model)
	}
	if store.Len() != 1 || store.IDs()[0] != sess.ID {
		t.Fatalf("unexpected ids %v", store.IDs())
	}

	called := false
	err = store.With(context.Background(), sess.ID, func(s *Session) error {
		called = s.Instance() != nil
		return nil
	})
	if err != nil || !called {
		t.Fatalf("With: called=%v err=%v", called, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = store.With(ctx, sess.ID, func(*Session) error {
		t.Fatal("fn must not run on a canceled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if !store.Delete(sess.ID) {
		t.Fatal("Delete returned false")
	}
	err = store.With(context.Background(), sess.ID, func(*Session) error { return nil })
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionStoreCreateErrors(t *testing.T) {
	t.Parallel()
	store := NewSessionStore(SessionStoreConfig{KernelsDir: t.TempDir()})

	if _, err := store.Create("reverb", models.Options{}); !errors.Is(err, models.ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel, got %v", err)
	}
	if _, err := store.Create("", models.Options{}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := store.Create("fir", models.Options{Taps: -1}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for bad taps, got %v", err)
	}
}

func TestResolveKernelPath(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "hp.safetensors"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	store := NewSessionStore(SessionStoreConfig{KernelsDir: dir})

	for _, name := range []string{"hp", "hp.safetensors"} {
		got, err := store.resolveKernelPath(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got != filepath.Join(dir, "hp.safetensors") {
			t.Fatalf("%s: unexpected path %q", name, got)
		}
	}
	for _, name := range []string{"sub", "../hp", "/abs/hp", "nope"} {
		if _, err := store.resolveKernelPath(name); !errors.Is(err, ErrInvalidRequest) {
			t.Errorf("%s: expected ErrInvalidRequest, got %v", name, err)
		}
	}
}
