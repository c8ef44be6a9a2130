package summarizer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Hamza-cpp/research-assistant/internal/domain"
	"github.com/Hamza-cpp/research-assistant/internal/ports"
)

// SummarizeChunk asks the model for a concise summary of a single chunk.
// The response is returned unmodified.
func SummarizeChunk(ctx context.Context, chunk domain.Chunk, llm ports.TextCompleter) (domain.IntermediateSummary, error) {
	text, err := llm.Complete(ctx, renderMapPrompt(chunk.Content))
	if err != nil {
		return domain.IntermediateSummary{}, fmt.Errorf("summarize chunk %d: %w", chunk.SequenceIndex, err)
	}
	return domain.IntermediateSummary{SequenceIndex: chunk.SequenceIndex, Text: text}, nil
}

// Combine synthesizes intermediate summaries, ordered by sequence index,
// into the raw structured response.
func Combine(ctx context.Context, summaries []domain.IntermediateSummary, llm ports.TextCompleter) (string, error) {
	ordered := make([]domain.IntermediateSummary, len(summaries))
	copy(ordered, summaries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SequenceIndex < ordered[j].SequenceIndex
	})

	texts := make([]string, len(ordered))
	for i, s := range ordered {
		texts[i] = s.Text
	}

	raw, err := llm.Complete(ctx, renderCombinePrompt(strings.Join(texts, "\n\n")))
	if err != nil {
		return "", fmt.Errorf("combine summaries: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptySynthesis
	}
	return raw, nil
}

// mapChunks summarizes every chunk with at most limit calls in flight.
// The first failure cancels the outstanding calls. Results are slotted by
// sequence index, and the function returns only after every call finished.
func mapChunks(ctx context.Context, chunks []domain.Chunk, llm ports.TextCompleter, limit int, timeout time.Duration) ([]domain.IntermediateSummary, error) {
	results := make([]domain.IntermediateSummary, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			callCtx, cancel := withTimeout(gctx, timeout)
			defer cancel()

			summary, err := SummarizeChunk(callCtx, chunk, llm)
			if err != nil {
				return err
			}
			results[i] = summary
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
