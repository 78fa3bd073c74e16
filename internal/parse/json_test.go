/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package parse

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"textadventure/internal/adventure"
)

const scenarioJSON = `{
  "title": " a ",
  "author": "b",
  "version": "c",
  "sections": [
    {"id": 0, "text": "Section 0", "options": [{"id": 1, "text": " option to 1 "}]},
    {"id": 1, "text": "Section 1\n", "options": [{"id": 0, "text": "back"}]}
  ]
}`

func jsonErr(t *testing.T, src string, opts ...Option) *Error {
	t.Helper()
	_, err := ParseJSON(strings.NewReader(src), opts...)
	if err == nil {
		t.Fatalf("expected error for %s", src)
	}
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	return pe
}

func TestParseJSONMatchesMarkup(t *testing.T) {
	fromJSON, err := ParseJSON(strings.NewReader(scenarioJSON))
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	fromMarkup := mustParse(t, scenario)
	if !reflect.DeepEqual(fromJSON, fromMarkup) {
		t.Fatalf("json and markup differ\njson:   %+v\nmarkup: %+v", fromJSON, fromMarkup)
	}
}

func TestParseJSONErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		kind Kind
	}{
		{"empty", "   ", KindJSONSyntax},
		{"trailing garbage", `{"title":"a"} x`, KindJSONSyntax},
		{"missing sections", `{"title":"a","author":"b","version":"c"}`, KindMissingKey},
		{"missing option text", `{"title":"a","author":"b","version":"c","sections":[{"id":0,"text":"s","options":[{"id":1}]}]}`, KindMissingKey},
		{"fractional id", `{"title":"a","author":"b","version":"c","sections":[{"id":0.5,"text":"s","options":[]}]}`, KindInvalidValue},
		{"negative id", `{"title":"a","author":"b","version":"c","sections":[{"id":-1,"text":"s","options":[]}]}`, KindInvalidValue},
		{"string id", `{"title":"a","author":"b","version":"c","sections":[{"id":"0","text":"s","options":[]}]}`, KindInvalidValue},
		{"title not a string", `{"title":1,"author":"b","version":"c","sections":[]}`, KindInvalidValue},
		{"blank title", `{"title":"  ","author":"b","version":"c","sections":[]}`, KindMissingTitle},
		{"blank author", `{"title":"a","author":"","version":"c","sections":[]}`, KindMissingAuthor},
		{"blank version", `{"title":"a","author":"b","version":"\t","sections":[]}`, KindMissingVersion},
		{"blank section text", `{"title":"a","author":"b","version":"c","sections":[{"id":0,"text":" ","options":[]}]}`, KindEmptyText},
		{"blank option text", `{"title":"a","author":"b","version":"c","sections":[{"id":0,"text":"s","options":[{"id":1,"text":""}]}]}`, KindEmptyText},
		{"unknown top-level key", `{"title":"a","author":"b","version":"c","sections":[],"extra":1}`, KindInvalidValue},
		{"unknown section key", `{"title":"a","author":"b","version":"c","sections":[{"id":0,"text":"s","options":[],"next":1}]}`, KindInvalidValue},
		{"unknown option key", `{"title":"a","author":"b","version":"c","sections":[{"id":0,"text":"s","options":[{"id":1,"text":"x","to":1}]}]}`, KindInvalidValue},
		{"id above int32", `{"title":"a","author":"b","version":"c","sections":[{"id":2147483648,"text":"s","options":[]}]}`, KindInvalidValue},
		{"empty array with comma", `{"title":"a","author":"b","version":"c","sections":[,]}`, KindJSONSyntax},
		{"comma without value", `{"title":"a","author":"b","version":"c","sections":[],"x":,}`, KindJSONSyntax},
		{"six options", `{"title":"a","author":"b","version":"c","sections":[{"id":0,"text":"s","options":[
			{"id":1,"text":"x"},{"id":2,"text":"x"},{"id":3,"text":"x"},{"id":4,"text":"x"},{"id":5,"text":"x"},{"id":6,"text":"x"}]}]}`, KindTooManyOptions},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if e := jsonErr(t, tc.src); e.Kind != tc.kind {
				t.Fatalf("kind = %v, want %v (%v)", e.Kind, tc.kind, e)
			}
		})
	}
}

func TestParseJSONSyntaxErrorPosition(t *testing.T) {
	e := jsonErr(t, "{\n  \"title\": }")
	if e.Kind != KindJSONSyntax {
		t.Fatalf("kind = %v", e.Kind)
	}
	if !e.HasPos || e.Pos != (Position{Row: 2, Col: 12}) {
		t.Fatalf("pos = %v (has=%v), want 2:12", e.Pos, e.HasPos)
	}
}

func TestParseJSONAcceptsTrailingCommas(t *testing.T) {
	src := `{
  "title": " a ",
  "author": "b",
  "version": "c",
  "sections": [
    {"id": 0, "text": "Section 0", "options": [{"id": 1, "text": " option to 1 "},],},
    {"id": 1, "text": "Section 1\n", "options": [{"id": 0, "text": "back",}]},
  ],
}`
	got, err := ParseJSON(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse json: %v", err)
	}
	if want := mustParse(t, scenario); !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v\nwant %+v", got, want)
	}
}

func TestParseJSONDoubleCommaPosition(t *testing.T) {
	e := jsonErr(t, "{\n  \"title\": \"a\",,\n}")
	if e.Kind != KindJSONSyntax {
		t.Fatalf("kind = %v", e.Kind)
	}
	if !e.HasPos || e.Pos != (Position{Row: 2, Col: 16}) {
		t.Fatalf("pos = %v (has=%v), want 2:16", e.Pos, e.HasPos)
	}
}

func TestBlankTrailingCommasKeepsStrings(t *testing.T) {
	in := []byte(`{"t": "a,]", "s": "q\",}",}`)
	want := `{"t": "a,]", "s": "q\",}" }`
	if got := string(blankTrailingCommas(in)); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	if string(in) != `{"t": "a,]", "s": "q\",}",}` {
		t.Fatalf("input was modified: %s", in)
	}
}

func TestParseJSONRunsGraphValidation(t *testing.T) {
	src := `{"title":"a","author":"b","version":"c","sections":[
		{"id":0,"text":"s","options":[{"id":1,"text":"x"}]},
		{"id":1,"text":"t","options":[]},
		{"id":2,"text":"u","options":[]}]}`
	e := jsonErr(t, src)
	if e.Kind != KindUnreachableSection || e.ID != 2 || e.HasPos {
		t.Fatalf("got %v (has pos %v)", e, e.HasPos)
	}

	single := `{"title":"a","author":"b","version":"c","sections":[{"id":0,"text":"s","options":[]}]}`
	if e := jsonErr(t, single); e.Kind != KindTooFewSections {
		t.Fatalf("got %v", e)
	}
	if _, err := ParseJSON(strings.NewReader(single), WithMinSections(1)); err != nil {
		t.Fatalf("single section with min 1: %v", err)
	}
}

func TestSchemaCompiles(t *testing.T) {
	if _, err := Schema(); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(string(SchemaJSON()), `"maxItems": 5`) {
		t.Fatalf("schema does not bound options")
	}
	if !strings.Contains(string(SchemaJSON()), fmt.Sprintf(`"maximum": %d`, adventure.MaxID)) {
		t.Fatalf("schema id bound differs from adventure.MaxID")
	}
}

func TestOffsetPosition(t *testing.T) {
	data := []byte("ab\né€x")
	if got := offsetPosition(data, 0); got != (Position{Row: 1, Col: 1}) {
		t.Fatalf("offset 0 = %v", got)
	}
	// 'x' sits after 'é'(2 bytes) and '€'(3 bytes) on row 2
	if got := offsetPosition(data, 3+2+3); got != (Position{Row: 2, Col: 3}) {
		t.Fatalf("offset of x = %v", got)
	}
}
