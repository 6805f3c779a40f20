package main

import (
	"flag"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/joshp123/thinqhome/internal/climate"
	"github.com/joshp123/thinqhome/internal/logging"
	"github.com/joshp123/thinqhome/internal/mcp"
)

var version = "dev"

func main() {
	flags := flag.NewFlagSet("thinqhome-mcp", flag.ExitOnError)
	addr := flags.String("addr", envOrDefault("THINQHOME_GRPC_ADDR", "localhost:9000"), "thinqhome gRPC address")
	logLevel := flags.String("log-level", envOrDefault("THINQHOME_LOG_LEVEL", "warn"), "Log level")
	_ = flags.Parse(os.Args[1:])

	// stdout carries the MCP protocol; logs go to stderr.
	if err := logging.Setup(strings.ToLower(*logLevel), "console", os.Stderr); err != nil {
		log.Fatal().Err(err).Msg("logging")
	}

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal().Err(err).Str("addr", *addr).Msg("dial thinqhome")
	}
	defer conn.Close()

	server := mcp.NewServer(climate.NewClient(conn), version)
	log.Info().Str("addr", *addr).Msg("serving MCP over stdio")
	if err := server.ServeStdio(); err != nil {
		log.Error().Err(err).Msg("mcp server stopped")
		os.Exit(1)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
