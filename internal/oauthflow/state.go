package oauthflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joshp123/thinqhome/internal/oauth"
)

// PersistResult reports where the seeded state ended up.
type PersistResult struct {
	Provider  string `json:"provider"`
	StatePath string `json:"state_path"`
	BlobSaved bool   `json:"blob_saved"`
}

// PersistOptions controls persistence behavior.
type PersistOptions struct {
	StatePathOverride string
	SkipBlob          bool
}

// StateFromBootstrap combines the bootstrap client credentials with a freshly
// obtained refresh token. The declaration scope wins over the bootstrap one.
func StateFromBootstrap(decl oauth.Declaration, bootstrap oauth.Bootstrap, refreshToken string) (oauth.State, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		refreshToken = bootstrap.RefreshToken
	}
	scope := decl.Scope
	if scope == "" {
		scope = bootstrap.Scope
	}
	state := bootstrap.State(refreshToken, scope)
	if err := state.Validate(); err != nil {
		return oauth.State{}, fmt.Errorf("seed %s state: %w", decl.Provider, err)
	}
	return state, nil
}

// PersistState writes state to disk and, unless skipped, mirrors it to blob
// storage so a fresh host picks it up before the bootstrap file.
func PersistState(ctx context.Context, decl oauth.Declaration, state oauth.State, blob oauth.BlobStore, opts PersistOptions) (PersistResult, error) {
	statePath := decl.StatePath
	if opts.StatePathOverride != "" {
		statePath = opts.StatePathOverride
	}
	if statePath == "" {
		return PersistResult{}, fmt.Errorf("state path missing")
	}
	if err := oauth.WriteState(statePath, state); err != nil {
		return PersistResult{}, err
	}

	result := PersistResult{Provider: decl.Provider, StatePath: statePath}
	if opts.SkipBlob || blob == nil {
		return result, nil
	}
	payload, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return result, err
	}
	if err := blob.Save(ctx, decl.Provider, payload); err != nil {
		return result, fmt.Errorf("mirror %s state: %w", decl.Provider, err)
	}
	result.BlobSaved = true
	return result, nil
}
