package docgen

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const systemDocument = `You are drafting a client deliverable for a professional services agency. Write the document the template prompt asks for, grounded strictly in the project context sections provided. Keep the section ordering implied by the template.`

const systemDocumentPass = `You are drafting one portion of a client deliverable for a professional services agency. Work only from the context sections in this message. If a continuity reference from an earlier portion is included, stay consistent with it but do not repeat it verbatim.`

const systemGrounding = `You distill project context for a professional services agency. Produce a compact grounding summary that captures the decisions, facts, goals and constraints in the provided sections with enough fidelity that later drafting steps never need the originals.`

const systemMerge = `You merge partial drafts of a client deliverable into one coherent document. Preserve the order of the parts as given, deduplicate overlap, smooth transitions, and do not introduce new facts.`

const sectionSeparator = "\n\n---\n\n"

// continuityChars bounds the excerpt of a previous pass carried into the
// next one, so continuity context never re-consumes meaningful budget.
const continuityChars = 1_500

func renderChunkSections(chunks []ContentChunk) string {
	var b strings.Builder
	for _, ch := range chunks {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("## ")
		b.WriteString(ch.Name)
		b.WriteString("\n\n")
		b.WriteString(ch.Text)
	}
	return b.String()
}

func renderGroundingPrompt(chunks []ContentChunk, targetTokens int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the following project context into at most %d tokens.\n\n", targetTokens)
	b.WriteString(renderChunkSections(chunks))
	return b.String()
}

func renderBatchPrompt(groundingSummary string, chunks []ContentChunk) string {
	var b strings.Builder
	b.WriteString("### Grounding summary\n\n")
	b.WriteString(groundingSummary)
	b.WriteString("\n\nDraft the portion of the deliverable covered by the sections below, consistent with the grounding summary.\n\n")
	b.WriteString(renderChunkSections(chunks))
	return b.String()
}

func renderContinuityPrompt(previousOutput string, chunks []ContentChunk) string {
	var b strings.Builder
	b.WriteString("### Continuity reference (excerpt of the previous pass output)\n\n")
	b.WriteString(excerpt(previousOutput, continuityChars))
	b.WriteString("\n\nContinue the deliverable using the sections below.\n\n")
	b.WriteString(renderChunkSections(chunks))
	return b.String()
}

func renderMergePrompt(parts []string) string {
	var b strings.Builder
	b.WriteString("Combine the following parts, in this order, into the final deliverable.")
	for i, part := range parts {
		fmt.Fprintf(&b, "\n\n### Part %d\n\n", i+1)
		b.WriteString(part)
	}
	return b.String()
}

// excerpt truncates to at most maxChars bytes, backing up to a rune boundary
// so a multi-byte character is never split.
func excerpt(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	cut := maxChars
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "…"
}
