package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dxcis/loanwd/internal/servicenow"
)

func testSession() Session {
	return Session{
		AccessToken:  "t1",
		RefreshToken: "r1",
		User: &servicenow.Profile{
			SysID:    "u1",
			Name:     "Alice Doe",
			UserName: "alice",
			Email:    "alice@example.com",
			SysDomain: servicenow.DomainRef{
				Value:        "d1",
				DisplayValue: "Acme",
			},
		},
	}
}

func TestSessionValid(t *testing.T) {
	t.Run("token and user present", func(t *testing.T) {
		if !testSession().Valid() {
			t.Error("expected session to be valid")
		}
	})
	t.Run("missing token", func(t *testing.T) {
		s := testSession()
		s.AccessToken = ""
		if s.Valid() {
			t.Error("expected session without token to be invalid")
		}
	})
	t.Run("missing user", func(t *testing.T) {
		s := testSession()
		s.User = nil
		if s.Valid() {
			t.Error("expected session without user to be invalid")
		}
	})
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}

	if err := store.Save(testSession()); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if loaded.AccessToken != "t1" || loaded.User == nil || loaded.User.UserName != "alice" {
		t.Errorf("unexpected session after round trip: %+v", loaded)
	}

	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Load(); ok {
		t.Error("expected store to be empty after clear")
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)

	if err := store.Save(testSession()); err != nil {
		t.Fatalf("save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat session file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}

	loaded, ok, err := NewFileStore(path).Load()
	if err != nil || !ok {
		t.Fatalf("load: ok=%v err=%v", ok, err)
	}
	if loaded.RefreshToken != "r1" || loaded.DomainID() != "d1" || loaded.DomainName() != "Acme" {
		t.Errorf("unexpected session after round trip: %+v", loaded)
	}
}

func TestFileStoreAbsent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("expected absent session, got ok=%v err=%v", ok, err)
	}
}

func TestFileStoreSelfHealsCorruptRecord(t *testing.T) {
	corrupt := []struct {
		name string
		data string
	}{
		{"not json", "{not json"},
		{"wrong shape", `{"accessToken": 42}`},
		{"invalid session", `{"accessToken": "", "user": null}`},
	}
	for _, tc := range corrupt {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "session.json")
			if err := os.WriteFile(path, []byte(tc.data), 0o600); err != nil {
				t.Fatalf("seed corrupt file: %v", err)
			}

			store := NewFileStore(path)
			_, ok, err := store.Load()
			if err != nil {
				t.Fatalf("load should not fail on corrupt data: %v", err)
			}
			if ok {
				t.Fatal("corrupt record should report absent")
			}
			if _, err := os.Stat(path); !os.IsNotExist(err) {
				t.Error("corrupt record should have been discarded")
			}
		})
	}
}

func TestFileStoreClearIdempotent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	if err := store.Clear(); err != nil {
		t.Fatalf("clear on absent record: %v", err)
	}
	if err := store.Save(testSession()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}
