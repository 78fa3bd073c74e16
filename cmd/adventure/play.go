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
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"textadventure/internal/adventure"
	"textadventure/internal/config"
	applog "textadventure/internal/log"
	"textadventure/internal/parse"
	"textadventure/internal/play"
	"textadventure/internal/storage"
)

// visitsKept bounds the visit log per adventure.
const visitsKept = 500

func parseOptions(cfg config.AppConfig) []parse.Option {
	return []parse.Option{
		parse.WithMinSections(cfg.Parse.MinSections),
		parse.WithMaxTokens(cfg.Parse.MaxTokens),
	}
}

// loadDocument parses path as JSON when it ends in .json and as markup otherwise.
func loadDocument(path string, opts []parse.Option) (adventure.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return adventure.Document{}, err
	}
	defer f.Close()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return parse.ParseJSON(f, opts...)
	}
	return parse.Parse(f, opts...)
}

// diagnostic renders a load failure as file:row:col: message.
func diagnostic(path string, err error) string {
	var pe *parse.Error
	if errors.As(err, &pe) && pe.HasPos {
		return path + ":" + pe.Error()
	}
	return path + ": " + err.Error()
}

func savesPath(cfg config.AppConfig) (string, error) {
	if cfg.Storage.SavesPath != "" {
		return cfg.Storage.SavesPath, nil
	}
	dir, err := storage.DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, storage.FileName), nil
}

// absSource is the path recorded with saved progress. It falls back to the
// path as given when the working directory cannot be resolved.
func absSource(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func crashDir(cfg config.AppConfig) string {
	p, err := savesPath(cfg)
	if err != nil {
		return ""
	}
	return filepath.Join(filepath.Dir(p), "crashes")
}

func (a *app) openStore(ctx context.Context) (*storage.Store, error) {
	p, err := savesPath(a.cfg)
	if err != nil {
		return nil, err
	}
	st, err := storage.Open(ctx, p)
	if err != nil {
		return nil, err
	}
	if st.Recovered {
		fmt.Fprintln(a.stderr, "Warning: the save database was unreadable and has been reset; a backup was kept.")
	}
	return st, nil
}

// autosaver persists the session after every move: the position first, then
// the visit, which needs the position row to exist.
type autosaver struct {
	store   *storage.Store
	session *play.Session
	fp      string
	source  string
}

func (r *autosaver) progress() storage.Progress {
	doc := r.session.Document()
	return storage.Progress{
		Fingerprint: r.fp,
		Title:       doc.Title,
		Source:      r.source,
		SectionID:   r.session.Current().ID,
		Moves:       r.session.Moves(),
		Trail:       r.session.Trail(),
		Ended:       r.session.Ended(),
	}
}

func (r *autosaver) Record(ctx context.Context, m play.Move) error {
	p := r.progress()
	p.SectionID, p.Moves, p.Trail, p.Ended, p.UpdatedAt = m.To, m.Moves, m.Trail, m.Ended, m.At
	if err := r.store.SaveProgress(ctx, p); err != nil {
		return err
	}
	return r.store.RecordVisit(ctx, storage.Visit{Fingerprint: r.fp, FromID: m.From, ToID: m.To, Choice: m.Option, At: m.At})
}

// Autosave is the last-ditch save run when the process panics.
func (r *autosaver) Autosave() (string, error) {
	p := r.progress()
	if err := r.store.SaveProgress(context.Background(), p); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s at section %d", p.Title, p.SectionID), nil
}

func (a *app) play(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	restart := fs.Bool("restart", false, "ignore saved progress and start from the beginning")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		return a.usageError("play requires <file>")
	}
	path := fs.Arg(0)
	l := applog.WithOperation(applog.WithComponent("cli"), "play").With(slog.String("file", path))

	doc, err := loadDocument(path, parseOptions(a.cfg))
	if err != nil {
		fmt.Fprintln(a.stderr, diagnostic(path, err))
		return 1
	}
	s, err := play.NewSession(doc)
	if err != nil {
		return a.fail("play", err)
	}
	fp := adventure.Fingerprint(doc)
	opts := play.Options{
		WrapWidth: a.cfg.Player.WrapWidth,
		QuitKey:   a.cfg.Player.QuitKey,
		BackKey:   a.cfg.Player.BackKey,
	}

	var store *storage.Store
	if a.cfg.Player.Autosave {
		if store, err = a.openStore(ctx); err != nil {
			l.Warn("autosave disabled", slog.Any("err", err))
			fmt.Fprintln(a.stderr, "Warning: progress will not be saved:", err)
			store = nil
		} else {
			defer store.Close()
		}
	}

	resumed := false
	if store != nil {
		saver := &autosaver{store: store, session: s, fp: fp, source: absSource(path)}
		opts.Recorder = saver
		a.autosave = saver
		defer func() { a.autosave = nil }()

		if !*restart {
			resumed = a.resume(ctx, store, s, fp)
		}
	}
	if resumed {
		fmt.Fprintf(a.stdout, "Resuming %s after %d moves. Type %s to go back, %s to quit.\n\n", doc.Title, s.Moves(), opts.BackKey, opts.QuitKey)
		opts.SkipHeader = true
	}

	a.tel.AdventureStarted(fp, len(doc.Sections), resumed)
	err = play.Run(ctx, a.stdin, a.stdout, s, opts)
	a.tel.AdventureFinished(fp, s.Moves(), s.Ended())
	if store != nil {
		if n, perr := store.PruneVisits(context.Background(), fp, visitsKept); perr != nil {
			l.Warn("prune visits failed", slog.Any("err", perr))
		} else if n > 0 {
			l.Debug("visits pruned", slog.Int64("deleted", n))
		}
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, play.ErrQuit):
		if store != nil {
			fmt.Fprintln(a.stdout, "Progress saved.")
		}
		return 0
	case errors.Is(err, play.ErrInputClosed):
		return 0
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(a.stdout)
		return 130
	default:
		return a.fail("play", err)
	}
}

// resume restores saved progress for fp into s. Finished playthroughs start over.
func (a *app) resume(ctx context.Context, store *storage.Store, s *play.Session, fp string) bool {
	l := applog.WithOperation(applog.WithComponent("cli"), "resume")
	p, ok, err := store.LoadProgress(ctx, fp)
	if err != nil {
		l.Warn("load progress failed", slog.Any("err", err))
		return false
	}
	if !ok || p.Ended || p.Moves == 0 {
		return false
	}
	if err := s.Jump(p.SectionID); err != nil {
		l.Warn("saved section no longer exists", slog.Int("section", p.SectionID), slog.Any("err", err))
		return false
	}
	s.Restore(p.Moves, p.Trail)
	return true
}
