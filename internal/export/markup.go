/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes adventures out again: the markup and JSON encodings
// the parser reads, markdown and HTML for reading, and a printable gamebook PDF.
package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"textadventure/internal/adventure"
)

// ErrNotRepresentable reports text the markup cannot carry: delimiters have
// no escape and header fields are single lines.
var ErrNotRepresentable = errors.New("export: text not representable in markup")

const markupDelimiters = "<>[]"

// WriteMarkup writes doc in the markup form accepted by parse.Parse.
// Parsing the output yields a document equal to doc.
func WriteMarkup(w io.Writer, doc adventure.Document) error {
	if err := checkMarkup(doc); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	bw.WriteString(doc.Title + "\n")
	bw.WriteString(doc.Author + "\n")
	bw.WriteString(doc.Version + "\n")
	for _, s := range doc.Sections {
		bw.WriteString("\n<" + strconv.Itoa(s.ID) + ">" + s.Text + "\n[")
		for i, o := range s.Options {
			if i > 0 {
				bw.WriteString("\n")
			}
			bw.WriteString("<" + strconv.Itoa(o.TargetID) + ">" + o.Text)
		}
		bw.WriteString("]\n")
	}
	return bw.Flush()
}

func checkMarkup(doc adventure.Document) error {
	header := []struct{ name, val string }{
		{"title", doc.Title}, {"author", doc.Author}, {"version", doc.Version},
	}
	for _, h := range header {
		if err := checkText(h.name, h.val); err != nil {
			return err
		}
		if strings.Contains(h.val, "\n") {
			return fmt.Errorf("%w: %s spans several lines", ErrNotRepresentable, h.name)
		}
	}
	for _, s := range doc.Sections {
		if s.ID < 0 {
			return fmt.Errorf("%w: negative section id %d", ErrNotRepresentable, s.ID)
		}
		if err := checkText(fmt.Sprintf("section %d", s.ID), s.Text); err != nil {
			return err
		}
		for i, o := range s.Options {
			if o.TargetID < 0 {
				return fmt.Errorf("%w: negative target id %d", ErrNotRepresentable, o.TargetID)
			}
			if err := checkText(fmt.Sprintf("section %d option %d", s.ID, i+1), o.Text); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkText(what, s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s is empty", ErrNotRepresentable, what)
	}
	if strings.TrimSpace(s) != s {
		return fmt.Errorf("%w: %s has surrounding whitespace", ErrNotRepresentable, what)
	}
	if i := strings.IndexAny(s, markupDelimiters); i >= 0 {
		return fmt.Errorf("%w: %s contains %q", ErrNotRepresentable, what, s[i])
	}
	return nil
}
