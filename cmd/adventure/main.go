/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"textadventure/internal/config"
	"textadventure/internal/crash"
	applog "textadventure/internal/log"
	"textadventure/internal/telemetry"
	"textadventure/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "Text Adventure")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  adventure play [-restart] <file>            Play an adventure, resuming saved progress")
	fmt.Fprintln(w, "  adventure check <file>...                   Validate adventures, print file:row:col: message")
	fmt.Fprintln(w, "  adventure convert <in> <out>                Convert between markup (.adv/.txt) and JSON")
	fmt.Fprintln(w, "  adventure export [flags] <file> <out>       Export to .md, .html or a .pdf gamebook")
	fmt.Fprintln(w, "  adventure export -preset web|print|all <file> <dir>")
	fmt.Fprintln(w, "  adventure publish <file>                    Publish to the shared catalog")
	fmt.Fprintln(w, "  adventure catalog [query]                   List or search the catalog")
	fmt.Fprintln(w, "  adventure fetch <fingerprint> <out>         Download an adventure from the catalog")
	fmt.Fprintln(w, "  adventure saves                             List saved games")
	fmt.Fprintln(w, "  adventure forget <file>                     Delete the saved game of an adventure")
	fmt.Fprintln(w, "  adventure config [set-password]             Show effective configuration")
	fmt.Fprintln(w, "  adventure version|-v|--version              Show version")
}

// app carries what every subcommand needs.
type app struct {
	cfg    config.AppConfig
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	tel    *telemetry.Client
	// autosave is set by play while a session is running, for crash.Recover.
	autosave crash.Autosaver
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	_ = applog.Close()
	os.Exit(code)
}

// run executes one subcommand and returns the process exit status:
// 0 success, 1 failure, 2 usage error.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 1
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
		Console:   stderr,
	})
	l := applog.WithComponent("cli")
	l.Debug("start", slog.Int("args", len(args)))

	a := &app{cfg: cfg, stdin: stdin, stdout: stdout, stderr: stderr}
	a.tel = telemetry.New(telemetryConfig(cfg))
	telemetry.SetDefault(a.tel)
	defer func() {
		fctx, cancel := context.WithTimeout(context.Background(), time.Second)
		a.tel.Flush(fctx)
		cancel()
	}()
	defer crash.Recover(crashDir(cfg), crash.AutosaverFunc(func() (string, error) {
		if a.autosave == nil {
			return "nothing to save", nil
		}
		return a.autosave.Autosave()
	}))

	if len(args) == 0 {
		usage(stdout)
		return 0
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintln(stdout, "Text Adventure")
		fmt.Fprintln(stdout, version.String())
		return 0
	case "play":
		return a.play(ctx, rest)
	case "check":
		return a.check(rest)
	case "convert":
		return a.convert(rest)
	case "export":
		return a.export(rest)
	case "publish":
		return a.publish(ctx, rest)
	case "catalog":
		return a.catalog(ctx, rest)
	case "fetch":
		return a.fetch(ctx, rest)
	case "saves":
		return a.saves(ctx, rest)
	case "forget":
		return a.forget(ctx, rest)
	case "config":
		return a.showConfig(rest)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	}
	fmt.Fprintf(stderr, "unknown command %q\n", cmd)
	usage(stderr)
	return 2
}

func telemetryConfig(cfg config.AppConfig) telemetry.Config {
	tc := telemetry.FromEnv()
	if cfg.General.TelemetryOptIn {
		tc.OptIn = true
	}
	if tc.EventsURL == "" {
		tc.EventsURL = cfg.General.TelemetryEndpoint
	}
	return tc
}

// fail logs err and prints it for the user; it returns exit status 1.
func (a *app) fail(op string, err error) int {
	applog.WithOperation(applog.WithComponent("cli"), op).Error("command failed", slog.Any("err", err))
	fmt.Fprintln(a.stderr, "Error:", err)
	return 1
}

func (a *app) usageError(msg string) int {
	fmt.Fprintln(a.stderr, msg)
	usage(a.stderr)
	return 2
}
