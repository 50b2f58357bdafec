package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	paceplanmcp "github.com/claude/paceplan/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "PacePlan server URL (e.g. https://paceplan.tail1234.ts.net)")
	timezone := flag.String("timezone", "", "athlete time zone for \"today\" (default: local)")
	flag.Parse()

	// stdout carries the MCP protocol, so logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: paceplan-mcp -server <URL> [-timezone Area/City]\n")
		os.Exit(1)
	}

	loc := time.Local
	if *timezone != "" {
		var err error
		if loc, err = time.LoadLocation(*timezone); err != nil {
			log.Error("invalid timezone", "timezone", *timezone, "error", err)
			os.Exit(1)
		}
	}

	client := paceplanmcp.NewHTTPClient(*serverURL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	athlete, err := client.Athlete(ctx)
	cancel()
	if err != nil {
		log.Warn("could not load athlete settings, estimators need explicit heart rates", "error", err)
	}

	s := paceplanmcp.New(client, paceplanmcp.Settings{
		Version:  Version,
		Athlete:  athlete,
		Location: loc,
	}, log)

	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}
