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
	"errors"
	"fmt"
	"time"
)

// Visit is one move recorded in the visit log.
type Visit struct {
	Fingerprint string
	FromID      int
	ToID        int
	Choice      int // 1-based option, 0 for back/forward
	At          time.Time
}

// language=SQL
// dialect=SQLite
const insertVisitSQL = `INSERT INTO visits(fingerprint, from_id, to_id, choice, ts) VALUES(?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listVisitsSQL = `SELECT fingerprint, from_id, to_id, choice, ts FROM visits
WHERE fingerprint=? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneVisitsSQL = `DELETE FROM visits WHERE fingerprint=? AND id NOT IN (
	SELECT id FROM visits WHERE fingerprint=? ORDER BY ts DESC, id DESC LIMIT ?
)`

// language=SQL
// dialect=SQLite
const countSectionsSQL = `SELECT COUNT(DISTINCT to_id) FROM visits WHERE fingerprint=?`

// RecordVisit appends v to the log. The adventure must have saved progress.
func (s *Store) RecordVisit(ctx context.Context, v Visit) error {
	if v.Fingerprint == "" {
		return errors.New("visit needs a fingerprint")
	}
	if v.At.IsZero() {
		v.At = time.Now()
	}
	if _, err := s.db.ExecContext(ctx, insertVisitSQL, v.Fingerprint, v.FromID, v.ToID, v.Choice, v.At.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// ListVisits returns up to limit most recent visits, newest first.
func (s *Store) ListVisits(ctx context.Context, fingerprint string, limit int) ([]Visit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, listVisitsSQL, fingerprint, limit)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Visit
	for rows.Next() {
		var v Visit
		var ts string
		if err := rows.Scan(&v.Fingerprint, &v.FromID, &v.ToID, &v.Choice, &ts); err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		v.At, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, v)
	}
	return out, rows.Err()
}

// PruneVisits keeps the keepLast newest visits of an adventure and returns
// how many were deleted. keepLast <= 0 keeps everything.
func (s *Store) PruneVisits(ctx context.Context, fingerprint string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, pruneVisitsSQL, fingerprint, fingerprint, keepLast)
	if err != nil {
		return 0, fmt.Errorf("prune visits: %w", err)
	}
	return res.RowsAffected()
}

// SectionsSeen counts the distinct sections reached in an adventure.
func (s *Store) SectionsSeen(ctx context.Context, fingerprint string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, countSectionsSQL, fingerprint).Scan(&n); err != nil {
		return 0, fmt.Errorf("count sections: %w", err)
	}
	return n, nil
}
