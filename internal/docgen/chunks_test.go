package docgen

import "testing"

func TestBuildChunksSortedByPriority(t *testing.T) {
	named := []NamedText{
		{Name: VarMetadata, Text: "m"},
		{Name: VarFileContent, Text: "f"},
		{Name: VarProjectSummary, Text: "s"},
		{Name: VarQuestionAnswers, Text: "qa"},
		{Name: VarTemplatePrompt, Text: "t"},
		{Name: VarQuestionsList, Text: "q"},
		{Name: VarStakeholderProfiles, Text: "p"},
	}
	chunks := BuildChunks(named)
	if len(chunks) != len(named) {
		t.Fatalf("expected %d chunks, got %d", len(named), len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Priority < chunks[i-1].Priority {
			t.Fatalf("chunks out of order at %d: %v then %v", i, chunks[i-1], chunks[i])
		}
	}
	if chunks[0].Name != VarProjectSummary || chunks[1].Name != VarTemplatePrompt {
		t.Fatalf("top priorities wrong: %s, %s", chunks[0].Name, chunks[1].Name)
	}
	if chunks[len(chunks)-1].Name != VarMetadata {
		t.Fatalf("metadata should sort last, got %s", chunks[len(chunks)-1].Name)
	}
}

func TestBuildChunksStableOnTies(t *testing.T) {
	// Unrecognized names all land in the metadata tier; their input order
	// must survive the sort.
	named := []NamedText{
		{Name: "custom_one", Text: "1"},
		{Name: "custom_two", Text: "2"},
		{Name: "custom_three", Text: "3"},
	}
	chunks := BuildChunks(named)
	for i, want := range []string{"custom_one", "custom_two", "custom_three"} {
		if chunks[i].Name != want {
			t.Fatalf("tie order broken at %d: got %s, want %s", i, chunks[i].Name, want)
		}
		if chunks[i].Priority != PriorityMetadata {
			t.Fatalf("unknown name %s should get metadata tier, got %d", chunks[i].Name, chunks[i].Priority)
		}
	}
}

func TestBuildChunksEstimates(t *testing.T) {
	chunks := BuildChunks([]NamedText{{Name: VarProjectSummary, Text: "abcdefgh"}})
	if chunks[0].EstimatedTokens != 2 {
		t.Fatalf("expected 2 estimated tokens, got %d", chunks[0].EstimatedTokens)
	}
}

func TestFromMapDeterministic(t *testing.T) {
	m := map[string]string{"b": "2", "a": "1", "c": "3"}
	first := FromMap(m)
	for i := 0; i < 20; i++ {
		again := FromMap(m)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("FromMap not deterministic at %d: %v vs %v", j, first[j], again[j])
			}
		}
	}
}
