/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package parse reads adventure documents.
//
// The markup form is:
//
//	title
//	author
//	version
//	<0>section text[<1> option text<2> option text]
//	<1>section text[...]
//
// Parse scans it character by character, pushes tokens on a stack, builds a
// section at every ']' by popping back to its '[' and finally validates the
// section graph. ParseJSON reads the same document from its JSON encoding.
// Both return the first failure as an *Error.
package parse

import (
	"io"
	"log/slog"

	"textadventure/internal/adventure"
	applog "textadventure/internal/log"
)

const (
	// DefaultMinSections requires a start and at least one other section.
	DefaultMinSections = 2
	// DefaultMaxTokens bounds the token count of a single document.
	DefaultMaxTokens = 1 << 16
)

type settings struct {
	minSections int
	maxTokens   int
}

// Option tunes Parse, ParseJSON and Validate.
type Option func(*settings)

// WithMinSections sets the minimum section count. Values below 1 are ignored.
func WithMinSections(n int) Option {
	return func(s *settings) {
		if n >= 1 {
			s.minSections = n
		}
	}
}

// WithMaxTokens sets the token bound; 0 disables it.
func WithMaxTokens(n int) Option {
	return func(s *settings) {
		if n >= 0 {
			s.maxTokens = n
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{minSections: DefaultMinSections, maxTokens: DefaultMaxTokens}
	for _, o := range opts {
		if o != nil {
			o(&s)
		}
	}
	return s
}

// Parse reads a markup document from r. On failure no document is returned.
func Parse(r io.Reader, opts ...Option) (adventure.Document, error) {
	s := newSettings(opts)
	l := applog.WithOperation(applog.WithComponent("parse"), "markup")

	stack := &tokenStack{}
	asm := &assembler{stack: stack}
	tz := &tokenizer{
		sc:        NewScanner(r),
		stack:     stack,
		maxTokens: s.maxTokens,
		onClose:   asm.closeSection,
	}
	if err := tz.run(); err != nil {
		l.Debug("tokenize failed", slog.Any("err", err))
		return adventure.Document{}, err
	}
	title, author, version, err := asm.header()
	if err != nil {
		l.Debug("header failed", slog.Any("err", err))
		return adventure.Document{}, err
	}
	doc := adventure.Document{Title: title, Author: author, Version: version, Sections: asm.sections}
	if doc.Sections == nil {
		doc.Sections = []adventure.Section{}
	}
	if err := validate(doc, s.minSections, asm.layouts); err != nil {
		l.Debug("validation failed", slog.Any("err", err))
		return adventure.Document{}, err
	}
	l.Debug("parsed", slog.String("title", doc.Title), slog.Int("sections", len(doc.Sections)), slog.Int("tokens", tz.pushed))
	return doc, nil
}
