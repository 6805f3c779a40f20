package oauthflow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/joshp123/thinqhome/internal/oauth"
)

type recordingStore struct {
	saved map[string][]byte
}

func (r *recordingStore) Load(context.Context, string) ([]byte, error) {
	return nil, oauth.ErrBlobNotFound
}

func (r *recordingStore) Save(_ context.Context, provider string, data []byte) error {
	if r.saved == nil {
		r.saved = make(map[string][]byte)
	}
	r.saved[provider] = data
	return nil
}

func TestStateFromBootstrap(t *testing.T) {
	decl := oauth.Declaration{Provider: "thinq", Scope: "offline_access"}
	bootstrap := oauth.Bootstrap{ClientID: "client", ClientSecret: "secret", Scope: "other"}

	state, err := StateFromBootstrap(decl, bootstrap, " fresh-token \n")
	if err != nil {
		t.Fatalf("StateFromBootstrap: %v", err)
	}
	if state.RefreshToken != "fresh-token" || state.Scope != "offline_access" || state.ClientID != "client" {
		t.Fatalf("unexpected state: %+v", state)
	}

	if _, err := StateFromBootstrap(decl, bootstrap, ""); err == nil {
		t.Fatalf("expected error without any refresh token")
	}
}

func TestPersistStateWritesFileAndBlob(t *testing.T) {
	statePath := filepath.Join(t.TempDir(), "state.json")
	decl := oauth.Declaration{Provider: "thinq", StatePath: statePath}
	state := oauth.State{SchemaVersion: oauth.SchemaVersion, ClientID: "client", RefreshToken: "token"}
	store := &recordingStore{}

	result, err := PersistState(context.Background(), decl, state, store, PersistOptions{})
	if err != nil {
		t.Fatalf("PersistState: %v", err)
	}
	if !result.BlobSaved || result.StatePath != statePath {
		t.Fatalf("unexpected result: %+v", result)
	}
	loaded, err := oauth.LoadState(statePath)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if loaded.RefreshToken != "token" {
		t.Fatalf("unexpected persisted state: %+v", loaded)
	}
	if _, ok := store.saved["thinq"]; !ok {
		t.Fatalf("expected blob mirror")
	}

	override := filepath.Join(t.TempDir(), "override.json")
	result, err = PersistState(context.Background(), decl, state, store, PersistOptions{StatePathOverride: override, SkipBlob: true})
	if err != nil {
		t.Fatalf("PersistState override: %v", err)
	}
	if result.BlobSaved || result.StatePath != override {
		t.Fatalf("unexpected override result: %+v", result)
	}
}
