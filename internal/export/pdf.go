/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jung-kurt/gofpdf"

	"textadventure/internal/adventure"
)

// PDFOptions controls the gamebook layout. Units are points.
type PDFOptions struct {
	PageSize string  // "A4" (default), "A5" or "Letter"
	FontSize float64 // body text, default 11
	// Shuffle numbers the sections in random order, as printed gamebooks do,
	// so that readers cannot guess outcomes from neighbouring numbers. The
	// entry section is always paragraph 1.
	Shuffle bool
	Seed    uint64
}

// Numbering assigns gamebook paragraph numbers (starting at 1) to section ids.
// Without shuffle the source order is kept.
func Numbering(doc adventure.Document, shuffle bool, seed uint64) map[int]int {
	order := make([]int, 0, len(doc.Sections))
	seen := make(map[int]bool, len(doc.Sections))
	for _, s := range doc.Sections {
		if !seen[s.ID] {
			seen[s.ID] = true
			order = append(order, s.ID)
		}
	}
	if shuffle && len(order) > 2 {
		rest := order[1:]
		r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		r.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
	}
	nums := make(map[int]int, len(order))
	for i, id := range order {
		nums[id] = i + 1
	}
	return nums
}

// WriteGamebookPDF renders doc as a printable gamebook: a title page, then
// one numbered paragraph per section whose choices read "turn to N".
func WriteGamebookPDF(w io.Writer, doc adventure.Document, opt PDFOptions) error {
	pdf, err := buildGamebook(doc, opt)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// ExportGamebookPDF writes the gamebook to outPath, creating its directory.
func ExportGamebookPDF(doc adventure.Document, outPath string, opt PDFOptions) error {
	pdf, err := buildGamebook(doc, opt)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func buildGamebook(doc adventure.Document, opt PDFOptions) (*gofpdf.Fpdf, error) {
	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("document has no sections")
	}
	size := opt.PageSize
	switch size {
	case "":
		size = "A4"
	case "A4", "A5", "Letter":
	default:
		return nil, fmt.Errorf("unsupported page size %q", opt.PageSize)
	}
	fs := opt.FontSize
	if fs <= 0 {
		fs = 11
	}
	lineH := fs * 1.4

	pdf := gofpdf.New("P", "pt", size, "")
	// Core fonts are cp1252; the translator maps UTF-8 input onto it.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(doc.Title, true)
	pdf.SetAuthor(doc.Author, true)
	pdf.SetCreator("textadventure", false)
	pdf.SetMargins(56, 56, 56)
	pdf.SetAutoPageBreak(true, 56)
	pdf.SetFooterFunc(func() {
		if pdf.PageNo() == 1 {
			return
		}
		pdf.SetY(-40)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(0, 10, strconv.Itoa(pdf.PageNo()-1), "", 0, "C", false, 0, "")
	})

	// Title page
	pdf.AddPage()
	_, pageH := pdf.GetPageSize()
	pdf.SetY(pageH / 3)
	pdf.SetFont("Helvetica", "B", 26)
	pdf.MultiCell(0, 32, tr(doc.Title), "", "C", false)
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 14)
	pdf.MultiCell(0, 20, tr("by "+doc.Author), "", "C", false)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 16, tr(doc.Version), "", "C", false)
	pdf.Ln(24)
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 14, tr("Begin at paragraph 1. When a paragraph offers choices, pick one and turn to the paragraph it names."), "", "C", false)

	nums := Numbering(doc, opt.Shuffle, opt.Seed)
	byNum := make([]adventure.Section, len(nums)+1)
	for _, s := range doc.Sections {
		if n := nums[s.ID]; byNum[n].Text == "" {
			byNum[n] = s
		}
	}

	pdf.AddPage()
	for n := 1; n < len(byNum); n++ {
		s := byNum[n]
		// keep the paragraph number together with the first lines of text
		if pdf.GetY()+3*lineH > pageH-56 {
			pdf.AddPage()
		}
		pdf.SetFont("Helvetica", "B", fs+3)
		pdf.CellFormat(0, lineH+4, strconv.Itoa(n), "", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", fs)
		pdf.MultiCell(0, lineH, tr(s.Text), "", "J", false)
		pdf.Ln(lineH / 2)
		if s.IsTerminal() {
			pdf.SetFont("Helvetica", "BI", fs)
			pdf.CellFormat(0, lineH, tr(EndMarker), "", 1, "C", false, 0, "")
		}
		for _, o := range s.Options {
			target, ok := nums[o.TargetID]
			if !ok {
				return nil, fmt.Errorf("section %d points at missing section %d", s.ID, o.TargetID)
			}
			pdf.SetFont("Helvetica", "I", fs)
			pdf.MultiCell(0, lineH, tr(fmt.Sprintf("%s: turn to %d", o.Text, target)), "", "L", false)
		}
		pdf.Ln(lineH)
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}
	return pdf, nil
}
