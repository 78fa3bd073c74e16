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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"textadventure/internal/adventure"
)

// Format names an output encoding.
type Format string

const (
	FormatMarkup   Format = "adv"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
	FormatPDF      Format = "pdf"
)

// PresetName selects a group of formats for ExportBatch.
type PresetName string

const (
	PresetWeb   PresetName = "web"   // html, json
	PresetPrint PresetName = "print" // pdf, md
	PresetAll   PresetName = "all"
)

// FormatForPath picks the format from the file extension. ".txt" and ".adv"
// both mean markup.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".adv", ".txt":
		return FormatMarkup, nil
	case ".json":
		return FormatJSON, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".html", ".htm":
		return FormatHTML, nil
	case ".pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unknown output format for %q", path)
	}
}

// Write encodes doc in format f.
func Write(w io.Writer, f Format, doc adventure.Document, pdfOpt PDFOptions) error {
	switch f {
	case FormatMarkup:
		return WriteMarkup(w, doc)
	case FormatJSON:
		return WriteJSON(w, doc)
	case FormatMarkdown:
		return WriteMarkdown(w, doc)
	case FormatHTML:
		return WriteHTML(w, doc)
	case FormatPDF:
		return WriteGamebookPDF(w, doc, pdfOpt)
	default:
		return fmt.Errorf("unknown format: %s", f)
	}
}

// ExportFile writes doc to path in the format its extension names. The file
// is written next to its final name and renamed into place.
func ExportFile(doc adventure.Document, path string, pdfOpt PDFOptions) error {
	f, err := FormatForPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())
	bw := bufio.NewWriter(tmp)
	if err := Write(bw, f, doc, pdfOpt); err != nil {
		tmp.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// BatchOptions controls ExportBatch.
//
// Output files are named <Base>.<ext> inside OutDir/<preset>/. Formats
// overrides the preset's format list when set.
type BatchOptions struct {
	Preset  PresetName
	Formats []Format
	OutDir  string
	Base    string // file name without extension, default "adventure"
	PDF     PDFOptions
}

// ExportBatch writes doc in every format of the preset and returns the paths
// written, in order.
func ExportBatch(doc adventure.Document, opt BatchOptions) ([]string, error) {
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetFormats(opt.Preset)
	}
	if len(formats) == 0 {
		return nil, fmt.Errorf("unknown preset: %q", opt.Preset)
	}
	base := strings.TrimSpace(opt.Base)
	if base == "" {
		base = "adventure"
	}
	dir := opt.OutDir
	if opt.Preset != "" {
		dir = filepath.Join(dir, string(opt.Preset))
	}
	var written []string
	for _, f := range formats {
		out := filepath.Join(dir, base+"."+string(f))
		if err := ExportFile(doc, out, opt.PDF); err != nil {
			return written, fmt.Errorf("%s: %w", f, err)
		}
		written = append(written, out)
	}
	return written, nil
}

func presetFormats(p PresetName) []Format {
	switch p {
	case PresetWeb:
		return []Format{FormatHTML, FormatJSON}
	case PresetPrint:
		return []Format{FormatPDF, FormatMarkdown}
	case PresetAll, "":
		return []Format{FormatMarkup, FormatJSON, FormatMarkdown, FormatHTML, FormatPDF}
	default:
		return nil
	}
}
