/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package parse

import (
	"slices"
	"strconv"
	"strings"

	"textadventure/internal/adventure"
)

// layout remembers where a section and its options were written so that
// graph errors found after assembly can still point into the source.
type layout struct {
	section Position
	options []Position
}

// assembler builds sections off the token stack. Each ']' completes exactly
// one section, so sections come out in source order.
type assembler struct {
	stack    *tokenStack
	sections []adventure.Section
	layouts  []layout
}

// closeSection runs at every ']'.
func (a *assembler) closeSection(closePos Position) error {
	opts, optPos, err := a.constructOptions(closePos)
	if err != nil {
		return err
	}
	sec, secPos, err := a.constructSection(opts, closePos)
	if err != nil {
		return err
	}
	a.sections = append(a.sections, sec)
	a.layouts = append(a.layouts, layout{section: secPos, options: optPos})
	return nil
}

// constructOptions pops options until the matching opening delimiter and
// returns them in source order.
func (a *assembler) constructOptions(closePos Position) ([]adventure.Option, []Position, error) {
	if !a.hasOpenDelimiter() {
		return nil, nil, errAt(KindUnmatchedOptionsClose, closePos)
	}
	var opts []adventure.Option
	var positions []Position
	for a.stack.peek().Type != TokOpeningOptionsDelimiter {
		opt, idPos, err := a.constructOption(closePos)
		if err != nil {
			return nil, nil, err
		}
		if len(opts) == adventure.MaxOptions {
			e := errAt(KindTooManyOptions, idPos)
			e.Limit = adventure.MaxOptions
			return nil, nil, e
		}
		opts = append(opts, opt)
		positions = append(positions, idPos)
	}
	a.stack.pop()
	slices.Reverse(opts)
	slices.Reverse(positions)
	return opts, positions, nil
}

// constructOption pops the option text and then its target id.
func (a *assembler) constructOption(fallback Position) (adventure.Option, Position, error) {
	txt := a.stack.pop()
	if txt.Type != TokText {
		return adventure.Option{}, Position{}, unexpected(KindExpectedText, txt, fallback)
	}
	id := a.stack.pop()
	if id.Type != TokID {
		return adventure.Option{}, Position{}, unexpected(KindExpectedID, id, fallback)
	}
	target, err := atoiToken(id)
	if err != nil {
		return adventure.Option{}, Position{}, err
	}
	return adventure.Option{Text: strings.TrimSpace(txt.Text), TargetID: target}, id.Pos, nil
}

// constructSection pops the body text and the section id below the options.
func (a *assembler) constructSection(opts []adventure.Option, fallback Position) (adventure.Section, Position, error) {
	body := a.stack.pop()
	if body.Type != TokText {
		return adventure.Section{}, Position{}, unexpected(KindExpectedText, body, fallback)
	}
	id := a.stack.pop()
	if id.Type != TokID {
		return adventure.Section{}, Position{}, unexpected(KindExpectedID, id, fallback)
	}
	n, err := atoiToken(id)
	if err != nil {
		return adventure.Section{}, Position{}, err
	}
	if opts == nil {
		opts = []adventure.Option{}
	}
	return adventure.Section{ID: n, Text: strings.TrimSpace(body.Text), Options: opts}, id.Pos, nil
}

func (a *assembler) hasOpenDelimiter() bool {
	for i := a.stack.len() - 1; i >= 0; i-- {
		if a.stack.items[i].Type == TokOpeningOptionsDelimiter {
			return true
		}
	}
	return false
}

// header consumes what is left on the stack at end of input: the single text
// block in front of the first section, split into title, author and version.
func (a *assembler) header() (title, author, version string, err error) {
	switch {
	case a.stack.len() == 0:
		return "", "", "", errNoPos(KindMissingTitle)
	case a.stack.items[0].Type != TokText:
		return "", "", "", errAt(KindUnclosedSection, a.stack.items[0].Pos)
	case a.stack.len() > 1:
		return "", "", "", errAt(KindUnclosedSection, a.stack.items[1].Pos)
	}
	block := a.stack.pop()
	lines := strings.Split(block.Text, "\n")
	// Blank lines in front of the block still count as header lines.
	skipped := block.Pos.Row - 1
	field := func(i int) string {
		if i -= skipped; i >= 0 && i < len(lines) {
			return strings.TrimSpace(lines[i])
		}
		return ""
	}
	// Anything past the third line is ignored.
	if title = field(0); title == "" {
		return "", "", "", errNoPos(KindMissingTitle)
	}
	if author = field(1); author == "" {
		return "", "", "", errNoPos(KindMissingAuthor)
	}
	if version = field(2); version == "" {
		return "", "", "", errNoPos(KindMissingVersion)
	}
	return title, author, version, nil
}

// unexpected reports kind at the offending token, or at fallback when the
// stack ran dry.
func unexpected(kind Kind, got Token, fallback Position) *Error {
	pos := got.Pos
	if got.Type == TokEmpty {
		pos = fallback
	}
	e := errAt(kind, pos)
	if got.Type != TokEmpty {
		e.Detail = "found " + got.Type.String()
	} else {
		e.Detail = "found nothing"
	}
	return e
}

func atoiToken(t Token) (int, error) {
	n, err := strconv.Atoi(t.Text)
	if err != nil {
		e := errAt(KindIDOutOfRange, t.Pos)
		e.Detail = t.Text
		return 0, e
	}
	return n, nil
}
