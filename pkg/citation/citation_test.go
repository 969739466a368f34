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

package citation

import (
	"testing"

	"github.com/kadirpekel/bookrag/pkg/bookrag"
)

func passage(source, section string, score float32) bookrag.RetrievedPassage {
	return bookrag.RetrievedPassage{
		Chunk: bookrag.Chunk{Source: source, Section: section, Title: "Title: " + source},
		Score: score,
	}
}

func TestBuildDedupesBySourceAndSection(t *testing.T) {
	passages := []bookrag.RetrievedPassage{
		passage("ch1.md", "intro", 0.9),
		passage("ch2.md", "gpio", 0.8),
		passage("ch1.md", "intro", 0.95), // duplicate, higher score
	}

	citations := Build(passages)

	if len(citations) != 2 {
		t.Fatalf("Build() returned %d citations, want 2", len(citations))
	}
	if citations[0].Index != 1 || citations[1].Index != 2 {
		t.Errorf("citations not densely numbered: %+v", citations)
	}
	if citations[0].RelevanceScore != 0.95 {
		t.Errorf("expected highest score retained, got %v", citations[0].RelevanceScore)
	}
}

func TestFilterReferencedDropsUnusedAndRenumbers(t *testing.T) {
	citations := []bookrag.Citation{
		{Index: 1, Source: "ch1.md"},
		{Index: 2, Source: "ch2.md"},
		{Index: 3, Source: "ch3.md"},
	}
	text := "GPIO pins are described in [Source 2], see also [Source 3]."

	rewritten, kept := FilterReferenced(text, citations)

	if len(kept) != 2 {
		t.Fatalf("FilterReferenced() kept %d citations, want 2", len(kept))
	}
	if kept[0].Source != "ch2.md" || kept[0].Index != 1 {
		t.Errorf("kept[0] = %+v", kept[0])
	}
	if kept[1].Source != "ch3.md" || kept[1].Index != 2 {
		t.Errorf("kept[1] = %+v", kept[1])
	}
	want := "GPIO pins are described in [Source 1], see also [Source 2]."
	if rewritten != want {
		t.Errorf("rewritten text = %q, want %q", rewritten, want)
	}
}

func TestFilterReferencedStripsHallucinatedMarkers(t *testing.T) {
	citations := []bookrag.Citation{
		{Index: 1, Source: "ch1.md"},
		{Index: 2, Source: "ch2.md"},
	}
	text := "GPIO pins are described in [Source 1], and also [Source 5]."

	rewritten, kept := FilterReferenced(text, citations)

	if len(kept) != 1 {
		t.Fatalf("FilterReferenced() kept %d citations, want 1", len(kept))
	}
	want := "GPIO pins are described in [Source 1], and also ."
	if rewritten != want {
		t.Errorf("rewritten text = %q, want %q", rewritten, want)
	}
}

func TestMergeDeduplicatesAcrossSections(t *testing.T) {
	sectionA := []bookrag.Citation{{Index: 1, Source: "ch1.md", Section: "intro", RelevanceScore: 0.7}}
	sectionB := []bookrag.Citation{
		{Index: 1, Source: "ch1.md", Section: "intro", RelevanceScore: 0.9},
		{Index: 2, Source: "ch4.md", Section: "wiring", RelevanceScore: 0.6},
	}

	merged := Merge([][]bookrag.Citation{sectionA, sectionB})

	if len(merged) != 2 {
		t.Fatalf("Merge() returned %d citations, want 2", len(merged))
	}
	if merged[0].RelevanceScore != 0.9 {
		t.Errorf("expected max score retained across sections, got %v", merged[0].RelevanceScore)
	}
	if merged[0].Index != 1 || merged[1].Index != 2 {
		t.Errorf("merged citations not densely renumbered: %+v", merged)
	}
}
