package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joshp123/thinqhome/internal/config"
	"github.com/joshp123/thinqhome/internal/oauth"
	"github.com/joshp123/thinqhome/internal/oauthflow"
	"github.com/joshp123/thinqhome/internal/plugins"
)

func oauthMain(args []string) {
	if len(args) < 1 {
		oauthUsage()
		os.Exit(2)
	}
	switch args[0] {
	case "seed":
		seedCmd(args[1:])
	default:
		oauthUsage()
		os.Exit(2)
	}
}

func oauthUsage() {
	fmt.Println("thinqhome oauth <command>")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  seed --provider thinq [--refresh-token TOKEN] (or pipe the token via stdin)")
}

// seedCmd writes refresh state for a provider from its bootstrap credentials
// and a refresh token obtained out of band.
func seedCmd(args []string) {
	flags := flag.NewFlagSet("seed", flag.ExitOnError)
	provider := flags.String("provider", "thinq", "OAuth provider ID")
	configPath := flags.String("config", envOrDefault("THINQHOME_CONFIG", config.DefaultPath), "Path to config.yaml")
	bootstrapPath := flags.String("bootstrap", "", "Override bootstrap file path")
	refreshToken := flags.String("refresh-token", "", "Refresh token; read from stdin when empty")
	statePath := flags.String("state", "", "Override state file path")
	skipBlob := flags.Bool("skip-blob", false, "Skip blob storage persistence")
	jsonOut := flags.Bool("json", false, "Output JSON to stdout")
	_ = flags.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal("oauth", err)
	}
	decl, err := lookupDeclaration(cfg, *provider)
	if err != nil {
		fatal("oauth", err)
	}

	path := *bootstrapPath
	if path == "" {
		if path, err = config.BootstrapPathForProvider(cfg, *provider); err != nil {
			fatal("oauth", err)
		}
	}
	bootstrap, err := oauth.LoadBootstrap(path)
	if err != nil {
		fatal("oauth", err)
	}

	token := *refreshToken
	if token == "" && bootstrap.RefreshToken == "" {
		if token, err = readTokenFromStdin(); err != nil {
			fatal("oauth", err)
		}
	}
	state, err := oauthflow.StateFromBootstrap(decl, bootstrap, token)
	if err != nil {
		fatal("oauth", err)
	}

	var blob oauth.BlobStore
	if !*skipBlob {
		store, err := oauth.NewS3Store(cfg.OAuth)
		if err != nil {
			fatal("oauth", err)
		}
		blob = store
	}
	result, err := oauthflow.PersistState(context.Background(), decl, state, blob, oauthflow.PersistOptions{
		StatePathOverride: *statePath,
		SkipBlob:          *skipBlob,
	})
	if err != nil {
		fatal("oauth", err)
	}

	if *jsonOut {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fatal("oauth", err)
		}
		fmt.Println(string(payload))
		return
	}
	fmt.Printf("State file: %s\n", result.StatePath)
	fmt.Printf("Blob persisted: %t\n", result.BlobSaved)
}

func lookupDeclaration(cfg *config.Config, provider string) (oauth.Declaration, error) {
	available := make([]string, 0)
	for _, plugin := range plugins.Compiled(cfg) {
		decl := plugin.OAuthDeclaration()
		if decl.Provider != "" {
			available = append(available, decl.Provider)
		}
		if decl.Provider == provider {
			return decl, nil
		}
	}
	if len(available) == 0 {
		return oauth.Declaration{}, fmt.Errorf("no providers configured (compiled: %s)", strings.Join(plugins.Names(), ", "))
	}
	return oauth.Declaration{}, fmt.Errorf("unknown provider %q (available: %s)", provider, strings.Join(available, ", "))
}

func readTokenFromStdin() (string, error) {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("no refresh token provided")
	}
	return line, nil
}
