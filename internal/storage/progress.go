/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Progress is the saved position in one adventure.
type Progress struct {
	Fingerprint string
	Title       string
	Source      string // file the adventure was last played from
	SectionID   int
	Moves       int
	Trail       []int // section ids Back would revisit, oldest first
	Ended       bool
	UpdatedAt   time.Time
}

const metaLastPlayed = "last_played"

// language=SQL
// dialect=SQLite
const upsertProgressSQL = `INSERT INTO progress(fingerprint, title, source, section_id, moves, trail, ended, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(fingerprint) DO UPDATE SET
	title=excluded.title, source=excluded.source, section_id=excluded.section_id,
	moves=excluded.moves, trail=excluded.trail, ended=excluded.ended, updated_at=excluded.updated_at`

// language=SQL
// dialect=SQLite
const selectProgressSQL = `SELECT fingerprint, title, source, section_id, moves, trail, ended, updated_at
FROM progress WHERE fingerprint=?`

// language=SQL
// dialect=SQLite
const listProgressSQL = `SELECT fingerprint, title, source, section_id, moves, trail, ended, updated_at
FROM progress ORDER BY updated_at DESC, fingerprint`

// language=SQL
// dialect=SQLite
const deleteProgressSQL = `DELETE FROM progress WHERE fingerprint=?`

// SaveProgress stores p, replacing any earlier save of the same adventure,
// and remembers it as the last played adventure. A zero UpdatedAt means now.
func (s *Store) SaveProgress(ctx context.Context, p Progress) error {
	if p.Fingerprint == "" {
		return errors.New("progress needs a fingerprint")
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}
	trail := p.Trail
	if trail == nil {
		trail = []int{}
	}
	tb, err := json.Marshal(trail)
	if err != nil {
		return fmt.Errorf("encode trail: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertProgressSQL, p.Fingerprint, p.Title, p.Source, p.SectionID, p.Moves,
		string(tb), boolInt(p.Ended), p.UpdatedAt.UTC().Format(time.RFC3339Nano)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("save progress: %w", err)
	}
	if _, err := tx.ExecContext(ctx, setMetaSQL, metaLastPlayed, p.Fingerprint); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("save last played: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// LoadProgress returns the save for fingerprint; ok is false when there is none.
func (s *Store) LoadProgress(ctx context.Context, fingerprint string) (p Progress, ok bool, err error) {
	p, err = scanProgress(s.db.QueryRowContext(ctx, selectProgressSQL, fingerprint))
	if errors.Is(err, sql.ErrNoRows) {
		return Progress{}, false, nil
	}
	if err != nil {
		return Progress{}, false, fmt.Errorf("load progress: %w", err)
	}
	return p, true, nil
}

// LastPlayed returns the most recently saved adventure.
func (s *Store) LastPlayed(ctx context.Context) (Progress, bool, error) {
	fp, ok, err := s.getMeta(ctx, metaLastPlayed)
	if err != nil || !ok {
		return Progress{}, false, err
	}
	return s.LoadProgress(ctx, fp)
}

// ListProgress returns all saves, most recent first.
func (s *Store) ListProgress(ctx context.Context) ([]Progress, error) {
	rows, err := s.db.QueryContext(ctx, listProgressSQL)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Forget deletes the save and the visit log of one adventure. Forgetting an
// unknown adventure is not an error.
func (s *Store) Forget(ctx context.Context, fingerprint string) error {
	// visits go with the progress row through ON DELETE CASCADE
	if _, err := s.db.ExecContext(ctx, deleteProgressSQL, fingerprint); err != nil {
		return fmt.Errorf("forget progress: %w", err)
	}
	if last, ok, err := s.getMeta(ctx, metaLastPlayed); err == nil && ok && last == fingerprint {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM meta WHERE key=?`, metaLastPlayed); err != nil {
			return fmt.Errorf("forget last played: %w", err)
		}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProgress(r rowScanner) (Progress, error) {
	var (
		p      Progress
		trail  string
		ended  int
		tsText string
	)
	if err := r.Scan(&p.Fingerprint, &p.Title, &p.Source, &p.SectionID, &p.Moves, &trail, &ended, &tsText); err != nil {
		return Progress{}, err
	}
	if err := json.Unmarshal([]byte(trail), &p.Trail); err != nil {
		return Progress{}, fmt.Errorf("decode trail: %w", err)
	}
	p.Ended = ended != 0
	p.UpdatedAt, _ = time.Parse(time.RFC3339Nano, tsText)
	return p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
