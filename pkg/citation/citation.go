// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package citation turns ranked passages into a deterministic, numbered
// citation list and the "[Source N]" markers an agent's prompt asks the
// model to use.
package citation

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/kadirpekel/bookrag/pkg/bookrag"
)

type key struct {
	source  string
	section string
}

// Build converts ranked passages into a numbered citation list. Numbering
// is 1-based, stable by insertion order of first appearance. Passages
// sharing a (source, section) collapse into one citation, keeping the
// highest score seen.
func Build(passages []bookrag.RetrievedPassage) []bookrag.Citation {
	seen := make(map[key]int) // key -> index into ordered
	var ordered []bookrag.Citation

	for _, p := range passages {
		k := key{source: p.Source, section: p.Section}
		if idx, ok := seen[k]; ok {
			if p.Score > ordered[idx].RelevanceScore {
				ordered[idx].RelevanceScore = p.Score
			}
			continue
		}
		seen[k] = len(ordered)
		ordered = append(ordered, bookrag.Citation{
			Index:          len(ordered) + 1,
			Source:         p.Source,
			Title:          p.Title,
			Section:        p.Section,
			RelevanceScore: p.Score,
		})
	}

	return ordered
}

var sourceMarker = regexp.MustCompile(`\[Source (\d+)\]`)

// FilterReferenced drops citations that the generated text never
// references via "[Source N]", then renumbers the remainder densely and
// rewrites the markers in text to match. Citations referenced in text
// but absent from the prompt context are illegal and are treated as
// unreferenced: callers must only pass citations from the same prompt
// context the text was generated against.
func FilterReferenced(text string, citations []bookrag.Citation) (string, []bookrag.Citation) {
	referenced := make(map[int]bool)
	for _, m := range sourceMarker.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		referenced[n] = true
	}

	remap := make(map[int]int) // old index -> new index
	var kept []bookrag.Citation
	for _, c := range citations {
		if !referenced[c.Index] {
			continue
		}
		newIndex := len(kept) + 1
		remap[c.Index] = newIndex
		c.Index = newIndex
		kept = append(kept, c)
	}

	rewritten := sourceMarker.ReplaceAllStringFunc(text, func(m string) string {
		sub := sourceMarker.FindStringSubmatch(m)
		old, _ := strconv.Atoi(sub[1])
		newIndex, ok := remap[old]
		if !ok {
			// old references a citation outside the prompt context (a
			// hallucinated source number); drop the marker rather than
			// leave an unbacked claim in the answer.
			return ""
		}
		return fmt.Sprintf("[Source %d]", newIndex)
	})

	return rewritten, kept
}

// Merge combines citation lists from multiple agents in a multi-agent
// synthesis, de-duplicating by (source, section) and renumbering 1..N in
// the order sections are provided.
func Merge(sections [][]bookrag.Citation) []bookrag.Citation {
	seen := make(map[key]int)
	var merged []bookrag.Citation

	for _, section := range sections {
		for _, c := range section {
			k := key{source: c.Source, section: c.Section}
			if idx, ok := seen[k]; ok {
				if c.RelevanceScore > merged[idx].RelevanceScore {
					merged[idx].RelevanceScore = c.RelevanceScore
				}
				continue
			}
			seen[k] = len(merged)
			c.Index = len(merged) + 1
			merged = append(merged, c)
		}
	}

	return merged
}
