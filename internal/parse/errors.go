/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package parse

import (
	"fmt"
)

// Kind classifies a parse failure.
type Kind int

const (
	KindUnknown Kind = iota

	// Lexical
	KindNestedIDOpen      // '<' inside an id
	KindUnmatchedIDClose  // '>' outside an id
	KindOptionsOpenInID   // '[' inside an id
	KindOptionsCloseInID  // ']' inside an id
	KindNonDigitInID      // anything but digits or whitespace inside an id
	KindEmptyID           // "<>"
	KindIDOutOfRange      // digits do not fit an int
	KindUnterminatedToken // input ended with an unflushed token
	KindTooManyTokens     // token limit exceeded
	KindUnmatchedOptionsClose

	// Syntactic
	KindExpectedText
	KindExpectedID
	KindTooManyOptions
	KindUnclosedSection

	// Header
	KindMissingTitle
	KindMissingAuthor
	KindMissingVersion

	// Semantic
	KindTooFewSections
	KindDuplicateSection
	KindSelfPointingSection
	KindUnreachableSection
	KindNonexistentSection

	// JSON dialect
	KindJSONSyntax
	KindMissingKey
	KindInvalidValue
	KindEmptyText
)

var kindNames = map[Kind]string{
	KindUnknown:               "unknown",
	KindNestedIDOpen:          "nested opening id delimiter",
	KindUnmatchedIDClose:      "closing id delimiter outside id",
	KindOptionsOpenInID:       "opening options delimiter inside id",
	KindOptionsCloseInID:      "closing options delimiter inside id",
	KindNonDigitInID:          "non-digit character inside id",
	KindEmptyID:               "empty id",
	KindIDOutOfRange:          "id out of range",
	KindUnterminatedToken:     "unterminated token at end of file",
	KindTooManyTokens:         "too many tokens",
	KindUnmatchedOptionsClose: "closing options delimiter without opening delimiter",
	KindExpectedText:          "expected text",
	KindExpectedID:            "expected id",
	KindTooManyOptions:        "too many options",
	KindUnclosedSection:       "section is not closed",
	KindMissingTitle:          "missing title",
	KindMissingAuthor:         "missing author",
	KindMissingVersion:        "missing version",
	KindTooFewSections:        "too few sections",
	KindDuplicateSection:      "duplicate section id",
	KindSelfPointingSection:   "option points at its own section",
	KindUnreachableSection:    "unreachable section",
	KindNonexistentSection:    "option points at nonexistent section",
	KindJSONSyntax:            "invalid json",
	KindMissingKey:            "missing key",
	KindInvalidValue:          "invalid value",
	KindEmptyText:             "empty text",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Position is a 1-based row/column pair.
type Position struct {
	Row int
	Col int
}

func (p Position) String() string { return fmt.Sprintf("%d:%d", p.Row, p.Col) }

// Error is the single failure returned by Parse and ParseJSON.
// ID and Target are set for the kinds that name sections:
// DuplicateSection, SelfPointingSection and UnreachableSection set ID;
// NonexistentSection sets ID (the source section) and Target.
type Error struct {
	Kind   Kind
	Pos    Position
	HasPos bool
	ID     int
	Target int
	// Count and Limit describe the bound for TooFewSections, TooManyOptions
	// and TooManyTokens.
	Count  int
	Limit  int
	Detail string
}

func (e *Error) Error() string {
	msg := e.message()
	if e.HasPos {
		return e.Pos.String() + ": " + msg
	}
	return msg
}

func (e *Error) message() string {
	var msg string
	switch e.Kind {
	case KindDuplicateSection, KindSelfPointingSection, KindUnreachableSection:
		msg = fmt.Sprintf("%s %d", e.Kind, e.ID)
	case KindNonexistentSection:
		msg = fmt.Sprintf("section %d: %s %d", e.ID, e.Kind, e.Target)
	case KindTooFewSections:
		msg = fmt.Sprintf("%s: found %d, need at least %d", e.Kind, e.Count, e.Limit)
	case KindTooManyOptions, KindTooManyTokens:
		msg = fmt.Sprintf("%s: at most %d allowed", e.Kind, e.Limit)
	default:
		msg = e.Kind.String()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is matches another *Error of the same kind, so callers can write
// errors.Is(err, &parse.Error{Kind: parse.KindExpectedText}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func errAt(k Kind, pos Position) *Error { return &Error{Kind: k, Pos: pos, HasPos: true} }

func errNoPos(k Kind) *Error { return &Error{Kind: k} }
