/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bufio"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"

	"textadventure/internal/adventure"
)

// EndMarker closes terminal sections in the reading formats.
const EndMarker = "The End"

// SectionAnchor is the fragment id of a section in markdown and HTML output.
func SectionAnchor(id int) string { return fmt.Sprintf("section-%d", id) }

// WriteMarkdown writes doc as a linked markdown document: one heading per
// section with an explicit anchor and the options as a numbered list of links.
func WriteMarkdown(w io.Writer, doc adventure.Document) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# %s\n\n", escapeInline(doc.Title))
	fmt.Fprintf(bw, "by %s, version %s\n", escapeInline(doc.Author), escapeInline(doc.Version))
	for _, s := range doc.Sections {
		fmt.Fprintf(bw, "\n## Section %d {#%s}\n\n", s.ID, SectionAnchor(s.ID))
		bw.WriteString(markdownBody(s.Text))
		bw.WriteString("\n\n")
		if s.IsTerminal() {
			fmt.Fprintf(bw, "*%s*\n", EndMarker)
			continue
		}
		for i, o := range s.Options {
			fmt.Fprintf(bw, "%d. [%s](#%s)\n", i+1, escapeInline(o.Text), SectionAnchor(o.TargetID))
		}
	}
	return bw.Flush()
}

// WriteHTML renders the markdown form into a standalone HTML page.
func WriteHTML(w io.Writer, doc adventure.Document) error {
	var src bytes.Buffer
	if err := WriteMarkdown(&src, doc); err != nil {
		return err
	}
	md := goldmark.New(goldmark.WithParserOptions(parser.WithAttribute()))
	var body bytes.Buffer
	if err := md.Convert(src.Bytes(), &body); err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err := fmt.Fprintf(w, htmlPage, html.EscapeString(doc.Title), html.EscapeString(doc.Author), body.String())
	return err
}

const htmlPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<meta name="author" content="%s">
<style>
body { max-width: 40em; margin: 2em auto; font-family: Georgia, serif; line-height: 1.5; }
h2 { font-size: 1.1em; border-top: 1px solid #ccc; padding-top: 1em; }
</style>
</head>
<body>
%s</body>
</html>
`

// markdownBody keeps paragraph breaks and turns single line breaks into
// hard breaks.
func markdownBody(text string) string {
	paras := splitParagraphs(text)
	out := make([]string, len(paras))
	for i, p := range paras {
		lines := strings.Split(p, "\n")
		for j, l := range lines {
			lines[j] = escapeLine(strings.TrimSpace(l))
		}
		out[i] = strings.Join(lines, "\\\n")
	}
	return strings.Join(out, "\n\n")
}

func splitParagraphs(text string) []string {
	var paras []string
	var cur []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == "" {
			if len(cur) > 0 {
				paras = append(paras, strings.Join(cur, "\n"))
				cur = nil
			}
			continue
		}
		cur = append(cur, l)
	}
	if len(cur) > 0 {
		paras = append(paras, strings.Join(cur, "\n"))
	}
	return paras
}

const inlineSpecials = "\\`*_[]<>#|!~{}"

func escapeInline(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(inlineSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

var orderedMarker = regexp.MustCompile(`^(\d+)([.)])`)

// escapeLine also neutralizes what would start a block at the beginning of a line.
func escapeLine(s string) string {
	s = escapeInline(s)
	if s == "" {
		return s
	}
	switch s[0] {
	case '-', '+', '=':
		return "\\" + s
	}
	return orderedMarker.ReplaceAllString(s, `$1\$2`)
}
