/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"encoding/json"
	"fmt"
	"io"

	"textadventure/internal/adventure"
)

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

// WriteJSON writes doc in the JSON encoding accepted by parse.ParseJSON.
// Option lists are always arrays, never null.
func WriteJSON(w io.Writer, doc adventure.Document) error {
	jd := jsonDocument{
		Title:    doc.Title,
		Author:   doc.Author,
		Version:  doc.Version,
		Sections: make([]jsonSection, 0, len(doc.Sections)),
	}
	for _, s := range doc.Sections {
		js := jsonSection{ID: s.ID, Text: s.Text, Options: make([]jsonOption, 0, len(s.Options))}
		for _, o := range s.Options {
			js.Options = append(js.Options, jsonOption{ID: o.TargetID, Text: o.Text})
		}
		jd.Sections = append(jd.Sections, js)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(jd); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
