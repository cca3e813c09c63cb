package docgen

import "sort"

// ChunkPriority orders named content blocks for packing. Lower is packed
// first and survives truncation longest; the ordering is load-bearing for
// the assemblers and must not change.
type ChunkPriority int

const (
	PriorityProjectSummary ChunkPriority = iota
	PriorityTemplatePrompt
	PriorityQuestionAnswers
	PriorityStakeholderProfiles
	PriorityFileContent
	PriorityQuestionsList
	PriorityMetadata
)

const (
	VarProjectSummary      = "project_summary"
	VarTemplatePrompt      = "template_prompt"
	VarQuestionAnswers     = "question_answers"
	VarStakeholderProfiles = "stakeholder_profiles"
	VarFileContent         = "file_content"
	VarQuestionsList       = "questions_list"
	VarMetadata            = "metadata"
)

var priorityByName = map[string]ChunkPriority{
	VarProjectSummary:      PriorityProjectSummary,
	VarTemplatePrompt:      PriorityTemplatePrompt,
	VarQuestionAnswers:     PriorityQuestionAnswers,
	"interview_responses":  PriorityQuestionAnswers,
	VarStakeholderProfiles: PriorityStakeholderProfiles,
	VarFileContent:         PriorityFileContent,
	VarQuestionsList:       PriorityQuestionsList,
	VarMetadata:            PriorityMetadata,
}

// PriorityFor maps a template variable name to its tier. Unrecognized names
// land in the metadata tier instead of failing, so new template variables
// degrade to lowest priority until the enum learns them.
func PriorityFor(name string) ChunkPriority {
	if p, ok := priorityByName[name]; ok {
		return p
	}
	return PriorityMetadata
}

// NamedText is one resolved template variable: a name plus its raw text.
type NamedText struct {
	Name string
	Text string
}

// ContentChunk is a named, sized block of text destined for a generation
// prompt. Built fresh per request and discarded after the document exists.
type ContentChunk struct {
	Name            string
	Text            string
	Priority        ChunkPriority
	EstimatedTokens int
}

// BuildChunks sizes and orders resolved variables by ascending priority.
// The sort is stable: blocks sharing a tier keep their input order.
func BuildChunks(named []NamedText) []ContentChunk {
	chunks := make([]ContentChunk, 0, len(named))
	for _, nt := range named {
		chunks = append(chunks, ContentChunk{
			Name:            nt.Name,
			Text:            nt.Text,
			Priority:        PriorityFor(nt.Name),
			EstimatedTokens: EstimateTokens(nt.Text),
		})
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		return chunks[i].Priority < chunks[j].Priority
	})
	return chunks
}

// FromMap adapts a plain mapping into the ordered form BuildChunks wants.
// Map iteration order is not stable, so ties are ordered by name to keep
// chunk construction deterministic across identical requests.
func FromMap(namedTexts map[string]string) []NamedText {
	names := make([]string, 0, len(namedTexts))
	for name := range namedTexts {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]NamedText, 0, len(names))
	for _, name := range names {
		out = append(out, NamedText{Name: name, Text: namedTexts[name]})
	}
	return out
}
