/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"textadventure/internal/adventure"
	"textadventure/internal/catalog"
	"textadventure/internal/config"
	"textadventure/internal/export"
)

func (a *app) check(args []string) int {
	if len(args) == 0 {
		return a.usageError("check requires at least one <file>")
	}
	code := 0
	opts := parseOptions(a.cfg)
	for _, path := range args {
		doc, err := loadDocument(path, opts)
		if err != nil {
			fmt.Fprintln(a.stderr, diagnostic(path, err))
			code = 1
			continue
		}
		fmt.Fprintf(a.stdout, "%s: ok (%d sections, %s)\n", path, len(doc.Sections), adventure.Fingerprint(doc)[:12])
	}
	return code
}

func (a *app) convert(args []string) int {
	if len(args) != 2 {
		return a.usageError("convert requires <in> and <out>")
	}
	in, out := args[0], args[1]
	f, err := export.FormatForPath(out)
	if err != nil {
		return a.fail("convert", err)
	}
	if f != export.FormatMarkup && f != export.FormatJSON {
		return a.usageError("convert writes .adv, .txt or .json; use export for " + filepath.Ext(out))
	}
	doc, err := loadDocument(in, parseOptions(a.cfg))
	if err != nil {
		fmt.Fprintln(a.stderr, diagnostic(in, err))
		return 1
	}
	if err := export.ExportFile(doc, out, export.PDFOptions{}); err != nil {
		return a.fail("convert", err)
	}
	fmt.Fprintln(a.stdout, "Wrote", out)
	return 0
}

func (a *app) export(args []string) int {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	preset := fs.String("preset", "", "write every format of a preset (web, print, all) into the output directory")
	page := fs.String("page", "A4", "PDF page size: A4, A5 or Letter")
	fontSize := fs.Float64("font-size", 11, "PDF body font size in points")
	shuffle := fs.Bool("shuffle", false, "number PDF paragraphs in random order")
	seed := fs.Uint64("seed", 0, "seed for -shuffle (0: derive from the current time)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		return a.usageError("export requires <file> and <out>")
	}
	in, out := fs.Arg(0), fs.Arg(1)
	doc, err := loadDocument(in, parseOptions(a.cfg))
	if err != nil {
		fmt.Fprintln(a.stderr, diagnostic(in, err))
		return 1
	}
	pdf := export.PDFOptions{PageSize: *page, FontSize: *fontSize, Shuffle: *shuffle, Seed: *seed}
	if pdf.Shuffle && pdf.Seed == 0 {
		pdf.Seed = uint64(time.Now().UnixNano())
	}

	if *preset != "" {
		base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		written, err := export.ExportBatch(doc, export.BatchOptions{
			Preset: export.PresetName(strings.ToLower(*preset)),
			OutDir: out,
			Base:   base,
			PDF:    pdf,
		})
		for _, p := range written {
			fmt.Fprintln(a.stdout, "Wrote", p)
		}
		if err != nil {
			return a.fail("export", err)
		}
		return 0
	}
	if err := export.ExportFile(doc, out, pdf); err != nil {
		return a.fail("export", err)
	}
	fmt.Fprintln(a.stdout, "Wrote", out)
	return 0
}

func (a *app) openCatalog(ctx context.Context) (*catalog.Catalog, error) {
	pw, err := config.CatalogPassword()
	if err != nil {
		return nil, err
	}
	timeout := time.Duration(a.cfg.Catalog.TimeoutMs) * time.Millisecond
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return catalog.Open(cctx, catalog.Config{DSN: a.cfg.Catalog.DSN, User: a.cfg.Catalog.User, Password: pw})
}

func (a *app) publish(ctx context.Context, args []string) int {
	if len(args) != 1 {
		return a.usageError("publish requires <file>")
	}
	doc, err := loadDocument(args[0], parseOptions(a.cfg))
	if err != nil {
		fmt.Fprintln(a.stderr, diagnostic(args[0], err))
		return 1
	}
	c, err := a.openCatalog(ctx)
	if err != nil {
		return a.fail("publish", err)
	}
	defer c.Close()
	publisher := a.cfg.Catalog.User
	if publisher == "" {
		publisher = os.Getenv("USER")
	}
	e, err := c.Publish(ctx, doc, publisher)
	if err != nil {
		return a.fail("publish", err)
	}
	fmt.Fprintf(a.stdout, "Published %q as %s\n", e.Title, e.Fingerprint[:12])
	return 0
}

func (a *app) catalog(ctx context.Context, args []string) int {
	c, err := a.openCatalog(ctx)
	if err != nil {
		return a.fail("catalog", err)
	}
	defer c.Close()
	entries, err := c.List(ctx, catalog.ListOptions{Query: strings.Join(args, " ")})
	if err != nil {
		return a.fail("catalog", err)
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.stdout, "No adventures found.")
		return 0
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tVERSION\tSECTIONS\tDOWNLOADS\tPUBLISHED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n", e.Fingerprint[:12], e.Title, e.Author, e.Version, e.Sections, e.Downloads, e.PublishedAt.Local().Format("2006-01-02"))
	}
	if err := tw.Flush(); err != nil {
		return a.fail("catalog", err)
	}
	return 0
}

func (a *app) fetch(ctx context.Context, args []string) int {
	if len(args) != 2 {
		return a.usageError("fetch requires <fingerprint> and <out>")
	}
	c, err := a.openCatalog(ctx)
	if err != nil {
		return a.fail("fetch", err)
	}
	defer c.Close()
	doc, err := c.Fetch(ctx, args[0], parseOptions(a.cfg)...)
	if err != nil {
		return a.fail("fetch", err)
	}
	if err := export.ExportFile(doc, args[1], export.PDFOptions{}); err != nil {
		return a.fail("fetch", err)
	}
	fmt.Fprintf(a.stdout, "Saved %q to %s\n", doc.Title, args[1])
	return 0
}

func (a *app) saves(ctx context.Context, args []string) int {
	if len(args) != 0 {
		return a.usageError("saves takes no arguments")
	}
	st, err := a.openStore(ctx)
	if err != nil {
		return a.fail("saves", err)
	}
	defer st.Close()
	list, err := st.ListProgress(ctx)
	if err != nil {
		return a.fail("saves", err)
	}
	if len(list) == 0 {
		fmt.Fprintln(a.stdout, "No saved games.")
		return 0
	}
	last, _, _ := st.LastPlayed(ctx)
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, " \tTITLE\tSECTION\tMOVES\tSEEN\tSTATE\tUPDATED\tFILE")
	for _, p := range list {
		mark := ""
		if p.Fingerprint == last.Fingerprint {
			mark = "*"
		}
		state := "in progress"
		if p.Ended {
			state = "finished"
		}
		seen, err := st.SectionsSeen(ctx, p.Fingerprint)
		if err != nil {
			return a.fail("saves", err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\t%s\n", mark, p.Title, p.SectionID, p.Moves, seen, state, p.UpdatedAt.Local().Format("2006-01-02 15:04"), p.Source)
	}
	if err := tw.Flush(); err != nil {
		return a.fail("saves", err)
	}
	return 0
}

func (a *app) forget(ctx context.Context, args []string) int {
	if len(args) != 1 {
		return a.usageError("forget requires <file>")
	}
	doc, err := loadDocument(args[0], parseOptions(a.cfg))
	if err != nil {
		fmt.Fprintln(a.stderr, diagnostic(args[0], err))
		return 1
	}
	st, err := a.openStore(ctx)
	if err != nil {
		return a.fail("forget", err)
	}
	defer st.Close()
	fp := adventure.Fingerprint(doc)
	if _, ok, err := st.LoadProgress(ctx, fp); err != nil {
		return a.fail("forget", err)
	} else if !ok {
		fmt.Fprintf(a.stdout, "No saved game for %q.\n", doc.Title)
		return 0
	}
	if err := st.Forget(ctx, fp); err != nil {
		return a.fail("forget", err)
	}
	fmt.Fprintf(a.stdout, "Forgot saved game for %q.\n", doc.Title)
	return 0
}

func (a *app) showConfig(args []string) int {
	if len(args) == 1 && args[0] == "set-password" {
		fmt.Fprint(a.stdout, "Catalog password (empty to remove): ")
		sc := bufio.NewScanner(a.stdin)
		pw := ""
		if sc.Scan() {
			pw = strings.TrimSpace(sc.Text())
		}
		if err := config.SetCatalogPassword(pw); err != nil {
			return a.fail("config", err)
		}
		fmt.Fprintln(a.stdout, "\nSaved.")
		return 0
	}
	if len(args) != 0 {
		return a.usageError("config takes no arguments or set-password")
	}
	path, _ := config.ConfigPath()
	fmt.Fprintln(a.stdout, "Config file:", path)
	c := a.cfg
	values := map[string]any{
		"general.telemetry_opt_in": c.General.TelemetryOptIn,
		"parse.min_sections":       c.Parse.MinSections,
		"parse.max_tokens":         c.Parse.MaxTokens,
		"player.wrap_width":        c.Player.WrapWidth,
		"player.autosave":          c.Player.Autosave,
		"storage.saves_path":       c.Storage.SavesPath,
		"catalog.dsn":              c.Catalog.DSN,
		"catalog.user":             c.Catalog.User,
		"logging.level":            c.Logging.Level,
		"logging.format":           c.Logging.Format,
		"logging.source":           c.Logging.Source,
		"logging.file":             c.Logging.File,
	}
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	for _, k := range config.Keys() {
		src := ""
		if env, ok := config.EnvOverrideFor(k); ok {
			src = "(from " + env + ")"
		}
		fmt.Fprintf(tw, "%s\t%v\t%s\n", k, values[k], src)
	}
	if err := tw.Flush(); err != nil {
		return a.fail("config", err)
	}
	return 0
}
