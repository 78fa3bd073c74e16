/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package parse

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"textadventure/internal/adventure"
	applog "textadventure/internal/log"
)

//go:embed schema/adventure.schema.json
var adventureSchemaJSON []byte

var (
	schemaOnce sync.Once
	schema     *gojsonschema.Schema
	schemaErr  error
)

// Schema returns the compiled JSON Schema of the JSON encoding.
func Schema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(adventureSchemaJSON))
	})
	return schema, schemaErr
}

// SchemaJSON returns the raw schema document.
func SchemaJSON() []byte { return append([]byte(nil), adventureSchemaJSON...) }

type jsonOption struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

type jsonSection struct {
	ID      int          `json:"id"`
	Text    string       `json:"text"`
	Options []jsonOption `json:"options"`
}

type jsonDocument struct {
	Title    string        `json:"title"`
	Author   string        `json:"author"`
	Version  string        `json:"version"`
	Sections []jsonSection `json:"sections"`
}

// ParseJSON reads the JSON encoding of an adventure:
//
//	{"title": "...", "author": "...", "version": "...",
//	 "sections": [{"id": 0, "text": "...", "options": [{"id": 1, "text": "..."}]}]}
//
// Ids are non-negative integers written without sign, fraction or exponent.
// The decoded document goes through the same graph validation as Parse.
func ParseJSON(r io.Reader, opts ...Option) (adventure.Document, error) {
	s := newSettings(opts)
	l := applog.WithOperation(applog.WithComponent("parse"), "json")

	data, err := io.ReadAll(r)
	if err != nil {
		return adventure.Document{}, fmt.Errorf("read input: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		e := errNoPos(KindJSONSyntax)
		e.Detail = "empty document"
		return adventure.Document{}, e
	}
	data = blankTrailingCommas(data)
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return adventure.Document{}, syntaxError(data, err)
	}
	if err := checkSchema(data); err != nil {
		l.Debug("schema failed", slog.Any("err", err))
		return adventure.Document{}, err
	}

	var jd jsonDocument
	if err := json.Unmarshal(data, &jd); err != nil {
		e := errNoPos(KindInvalidValue)
		e.Detail = err.Error()
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			e.Pos, e.HasPos = offsetPosition(data, int(te.Offset)-1), true
			e.Detail = fmt.Sprintf("%s must be a non-negative integer", te.Field)
		}
		return adventure.Document{}, e
	}

	doc, err := fromJSON(jd)
	if err != nil {
		return adventure.Document{}, err
	}
	if err := validate(doc, s.minSections, nil); err != nil {
		l.Debug("validation failed", slog.Any("err", err))
		return adventure.Document{}, err
	}
	l.Debug("parsed", slog.String("title", doc.Title), slog.Int("sections", len(doc.Sections)))
	return doc, nil
}

func checkSchema(data []byte) error {
	sch, err := Schema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	res, err := sch.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("schema validate: %w", err)
	}
	if res.Valid() {
		return nil
	}
	first := res.Errors()[0]
	var e *Error
	switch first.Type() {
	case "required":
		e = errNoPos(KindMissingKey)
	case "array_max_items":
		e = errNoPos(KindTooManyOptions)
		e.Limit = adventure.MaxOptions
	default:
		e = errNoPos(KindInvalidValue)
	}
	e.Detail = first.String()
	return e
}

func fromJSON(jd jsonDocument) (adventure.Document, error) {
	doc := adventure.Document{
		Title:    strings.TrimSpace(jd.Title),
		Author:   strings.TrimSpace(jd.Author),
		Version:  strings.TrimSpace(jd.Version),
		Sections: make([]adventure.Section, 0, len(jd.Sections)),
	}
	switch {
	case doc.Title == "":
		return adventure.Document{}, errNoPos(KindMissingTitle)
	case doc.Author == "":
		return adventure.Document{}, errNoPos(KindMissingAuthor)
	case doc.Version == "":
		return adventure.Document{}, errNoPos(KindMissingVersion)
	}
	for _, js := range jd.Sections {
		sec := adventure.Section{ID: js.ID, Text: strings.TrimSpace(js.Text), Options: make([]adventure.Option, 0, len(js.Options))}
		if sec.Text == "" {
			e := &Error{Kind: KindEmptyText, ID: js.ID, Detail: fmt.Sprintf("section %d", js.ID)}
			return adventure.Document{}, e
		}
		for i, jo := range js.Options {
			txt := strings.TrimSpace(jo.Text)
			if txt == "" {
				e := &Error{Kind: KindEmptyText, ID: js.ID, Detail: fmt.Sprintf("section %d option %d", js.ID, i+1)}
				return adventure.Document{}, e
			}
			sec.Options = append(sec.Options, adventure.Option{Text: txt, TargetID: jo.ID})
		}
		doc.Sections = append(doc.Sections, sec)
	}
	return doc, nil
}

// blankTrailingCommas replaces a single comma directly ahead of a closing
// '}' or ']' with a space. Strings are left alone, and so is a comma that
// follows another comma or an opening bracket, which keeps ",," and "[,]"
// syntax errors. Byte offsets do not move.
func blankTrailingCommas(data []byte) []byte {
	var out []byte
	inString, escaped := false, false
	var prev byte // last byte outside whitespace and strings
	for i := 0; i < len(data); i++ {
		c := data[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '"':
			inString = true
		case ',':
			if prev != ',' && prev != '[' && prev != '{' && prev != ':' && closesNext(data[i+1:]) {
				if out == nil {
					out = append([]byte(nil), data...)
				}
				out[i] = ' '
			}
		}
		prev = c
	}
	if out == nil {
		return data
	}
	return out
}

func closesNext(rest []byte) bool {
	rest = bytes.TrimLeft(rest, " \t\r\n")
	return len(rest) > 0 && (rest[0] == '}' || rest[0] == ']')
}

func syntaxError(data []byte, err error) error {
	e := errNoPos(KindJSONSyntax)
	e.Detail = err.Error()
	var se *json.SyntaxError
	if errors.As(err, &se) {
		e.Pos, e.HasPos = offsetPosition(data, int(se.Offset)-1), true
	}
	return e
}

// offsetPosition converts a byte offset into a 1-based row/column, counting
// multi-byte characters as one column.
func offsetPosition(data []byte, off int) Position {
	if off < 0 {
		off = 0
	}
	if off > len(data) {
		off = len(data)
	}
	pos := Position{Row: 1, Col: 1}
	for i := 0; i < off; {
		r, size := utf8.DecodeRune(data[i:])
		if r == '\n' {
			pos.Row++
			pos.Col = 1
		} else {
			pos.Col++
		}
		i += size
	}
	return pos
}
