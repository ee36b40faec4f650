// Command ally is a one-shot client for the Danfoss Ally cloud API. It
// exchanges the credentials from the environment for a bearer token, lists
// the account's devices, and reports each device's room temperature.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/bgaechter/danfoss-ally-go/ally"
)

func main() {
	envFile := flag.String("env-file", "", "load credentials from this .env file")
	baseURL := flag.String("base-url", ally.DefaultBaseURL, "Danfoss API base URL")
	timeout := flag.Duration("timeout", ally.DefaultTimeout, "per-request timeout")
	jsonOut := flag.Bool("json", false, "print devices as JSON instead of a table")
	verbose := flag.Bool("v", false, "log at debug level (temperature lines log at debug)")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fatal("load env file", err)
		}
	} else {
		// Best effort: a .env in the working directory is optional.
		_ = godotenv.Load()
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	creds, err := ally.CredentialsFromEnv()
	if err != nil {
		fatal("read credentials", err)
	}

	client, err := ally.New(creds,
		ally.WithBaseURL(*baseURL),
		ally.WithTimeout(*timeout),
		ally.WithLogger(logger),
	)
	if err != nil {
		fatal("configure client", err)
	}

	ctx := context.Background()
	if err := client.GetToken(ctx); err != nil {
		fatal("get token", err)
	}

	devices, err := client.GetDevices(ctx)
	if err != nil {
		fatal("get devices", err)
	}

	client.PrintRoomTemperatures(logger)

	if *jsonOut {
		printJSON(devices)
		return
	}
	printTable(devices)
}

func fatal(action string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", action, err)
	os.Exit(1)
}
