package docgen

import (
	"context"
	"fmt"
)

// packPasses splits priority-ordered chunks into consecutive passes, each
// packed greedily under limit. A chunk larger than the whole limit still
// gets its own pass; splitting inside a chunk is the resolver's job, not
// the packer's.
func packPasses(chunks []ContentChunk, limit int) [][]ContentChunk {
	var passes [][]ContentChunk
	var current []ContentChunk
	used := 0
	for _, ch := range chunks {
		if len(current) > 0 && used+ch.EstimatedTokens > limit {
			passes = append(passes, current)
			current = nil
			used = 0
		}
		current = append(current, ch)
		used += ch.EstimatedTokens
	}
	if len(current) > 0 {
		passes = append(passes, current)
	}
	return passes
}

// runSequential drafts the document in 2-3 priority-ordered passes. Each
// pass after the first carries a short excerpt of the previous output for
// continuity, and a final merge combines the passes in order. A failure in
// any pass aborts the run; partial output is never returned as a document.
func (g *Generator) runSequential(ctx context.Context, plan ContextPlan) (string, error) {
	passes := packPasses(plan.Chunks, plan.ContextLimit)
	g.log.Info("sequential assembly started", "pass_count", len(passes))

	results := make([]GenerationPass, 0, len(passes))
	previous := ""
	for i, passChunks := range passes {
		phase := fmt.Sprintf("sequential_pass_%d", i+1)
		g.progress(ProgressEvent{Phase: phase, Strategy: plan.Strategy, Step: i + 1, StepCount: len(passes)})

		var prompt string
		if i == 0 {
			prompt = renderChunkSections(passChunks)
		} else {
			prompt = renderContinuityPrompt(previous, passChunks)
		}
		out, err := g.call(ctx, phase, systemDocumentPass, prompt)
		if err != nil {
			return "", err
		}
		previous = out
		results = append(results, GenerationPass{
			Phase:      phase,
			ChunkNames: chunkNames(passChunks),
			PromptText: prompt,
			ResultText: out,
		})
	}

	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, r.ResultText)
	}
	g.progress(ProgressEvent{Phase: "sequential_merge", Strategy: plan.Strategy, Step: len(passes), StepCount: len(passes)})
	return g.combine(ctx, "sequential_merge", parts)
}
