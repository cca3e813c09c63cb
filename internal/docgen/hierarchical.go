package docgen

import (
	"context"
	"fmt"
)

// splitGrounding picks the Phase-1 input: the summary and template chunks
// unconditionally, then following chunks in priority order while they fit
// the grounding sub-budget. Packing stops at the first chunk that does not
// fit; skipping ahead would put lower-priority content before
// higher-priority content.
func splitGrounding(chunks []ContentChunk, budget int) (grounding, detail []ContentChunk) {
	used := 0
	packing := true
	for _, ch := range chunks {
		if ch.Priority <= PriorityTemplatePrompt {
			grounding = append(grounding, ch)
			used += ch.EstimatedTokens
			continue
		}
		if packing && used+ch.EstimatedTokens <= budget {
			grounding = append(grounding, ch)
			used += ch.EstimatedTokens
			continue
		}
		packing = false
		detail = append(detail, ch)
	}
	return grounding, detail
}

// packBatches splits the detail chunks into priority-ordered batches, each
// sized so batch + grounding summary stays under the context limit.
func packBatches(detail []ContentChunk, contextLimit, summaryTokens int) [][]ContentChunk {
	budget := contextLimit - summaryTokens
	if budget < 1 {
		budget = 1
	}
	return packPasses(detail, budget)
}

// runHierarchical handles content far beyond the context limit. Phase 1
// distills the highest-priority chunks into a compact grounding summary;
// Phase 2 drafts the remaining chunks in priority-ordered batches, each
// call carrying that summary as shared context; a final merge combines the
// batch outputs in planned order. The summary itself is scaffolding and
// never appears in the output. Any failed sub-call aborts the whole run.
func (g *Generator) runHierarchical(ctx context.Context, plan ContextPlan) (string, error) {
	grounding, detail := splitGrounding(plan.Chunks, g.cfg.groundingBudget())

	if len(detail) == 0 {
		// Nothing left over; the grounding set already fits one call.
		return g.runSinglePass(ctx, ContextPlan{
			TotalEstimatedTokens: plan.TotalEstimatedTokens,
			ContextLimit:         plan.ContextLimit,
			Strategy:             plan.Strategy,
			Chunks:               grounding,
		})
	}

	g.progress(ProgressEvent{Phase: "hierarchical_grounding", Strategy: plan.Strategy, Step: 0, StepCount: 0})
	summary, err := g.call(ctx, "hierarchical_grounding", systemGrounding,
		renderGroundingPrompt(grounding, g.cfg.GroundingTargetTokens))
	if err != nil {
		return "", err
	}

	batches := packBatches(detail, plan.ContextLimit, EstimateTokens(summary))
	g.log.Info("hierarchical assembly started",
		"grounding_chunks", len(grounding),
		"detail_chunks", len(detail),
		"batch_count", len(batches),
	)

	partials := make([]string, 0, len(batches))
	for i, batch := range batches {
		phase := fmt.Sprintf("hierarchical_batch_%d", i+1)
		g.progress(ProgressEvent{Phase: phase, Strategy: plan.Strategy, Step: i + 1, StepCount: len(batches)})
		out, err := g.call(ctx, phase, systemDocumentPass, renderBatchPrompt(summary, batch))
		if err != nil {
			return "", err
		}
		partials = append(partials, out)
	}

	g.progress(ProgressEvent{Phase: "hierarchical_merge", Strategy: plan.Strategy, Step: len(batches), StepCount: len(batches)})
	return g.combine(ctx, "hierarchical_merge", partials)
}
