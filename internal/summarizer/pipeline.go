// Package summarizer turns a research document into a structured digest with
// a map stage over chunks, a single reduce call and a tolerant parser.
package summarizer

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Hamza-cpp/research-assistant/internal/chunker"
	"github.com/Hamza-cpp/research-assistant/internal/domain"
	"github.com/Hamza-cpp/research-assistant/internal/ports"
	"github.com/Hamza-cpp/research-assistant/internal/telemetry"
)

// State is a pipeline run milestone.
type State int

const (
	StateEmpty State = iota
	StatePrepared
	StateChunked
	StateMapped
	StateReduced
	StateParsed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StatePrepared:
		return "prepared"
	case StateChunked:
		return "chunked"
	case StateMapped:
		return "mapped"
	case StateReduced:
		return "reduced"
	case StateParsed:
		return "parsed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Options tunes chunking and the map stage.
type Options struct {
	ChunkSize      int
	ChunkOverlap   int
	Separators     []string
	MapConcurrency int
	CallTimeout    time.Duration
}

// DefaultOptions mirrors the production settings.
func DefaultOptions() Options {
	return Options{
		ChunkSize:      4000,
		ChunkOverlap:   200,
		MapConcurrency: 4,
		CallTimeout:    2 * time.Minute,
	}
}

// Pipeline runs prepare, chunk, map, reduce and parse for one document at a
// time. It holds no per-run state and is safe for concurrent use.
type Pipeline struct {
	llm         ports.TextCompleter
	chunking    chunker.Options
	concurrency int
	timeout     time.Duration
	logger      *slog.Logger
	tracer      trace.Tracer
}

var _ ports.DocumentSummarizer = (*Pipeline)(nil)

// NewPipeline validates options and binds the completion capability.
func NewPipeline(llm ports.TextCompleter, opts Options, logger *slog.Logger) (*Pipeline, error) {
	if llm == nil {
		return nil, fail(KindConfiguration, nil, "text completion capability is not configured")
	}

	chunking := chunker.Options{
		MaxSize:    opts.ChunkSize,
		Overlap:    opts.ChunkOverlap,
		Separators: opts.Separators,
	}
	if err := chunking.Validate(); err != nil {
		return nil, fail(KindConfiguration, err, "invalid chunking parameters")
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Pipeline{
		llm:         llm,
		chunking:    chunking,
		concurrency: opts.MapConcurrency,
		timeout:     opts.CallTimeout,
		logger:      logger,
		tracer:      telemetry.Tracer("github.com/Hamza-cpp/research-assistant/internal/summarizer"),
	}, nil
}

// Run summarizes doc. Every failure is returned as a *Failure.
func (p *Pipeline) Run(ctx context.Context, doc domain.Document) (result domain.SummaryResult, err error) {
	ctx, span := p.tracer.Start(ctx, "summarizer.Run")
	defer func() { telemetry.End(span, err) }()

	state := StateEmpty
	defer func() {
		if err != nil {
			p.logger.Warn("pipeline transition", "from", state.String(), "to", StateFailed.String(), "kind", string(KindOf(err)), "error", err)
		}
	}()

	if doc.Abstract == "" {
		return domain.SummaryResult{}, fail(KindInsufficientData, nil, "document has no abstract")
	}

	prepared := PrepareText(doc)
	state = p.advance(state, StatePrepared, "runes", len([]rune(prepared)))

	if strings.TrimSpace(prepared) == "" {
		return domain.SummaryResult{}, fail(KindEmptyText, nil, "prepared text is blank")
	}

	chunks, err := chunker.Split(prepared, p.chunking)
	if err != nil {
		return domain.SummaryResult{}, fail(KindConfiguration, err, "split prepared text")
	}
	span.SetAttributes(attribute.Int("summarizer.chunks", len(chunks)))
	state = p.advance(state, StateChunked, "chunks", len(chunks))

	summaries, err := p.mapStage(ctx, chunks)
	if err != nil {
		if ctx.Err() != nil {
			return domain.SummaryResult{}, fail(KindCancelled, ctx.Err(), "cancelled during map stage")
		}
		return domain.SummaryResult{}, fail(KindMapStage, err, "chunk summarization failed")
	}
	state = p.advance(state, StateMapped, "summaries", len(summaries))

	raw, err := p.reduceStage(ctx, summaries)
	if err != nil {
		if ctx.Err() != nil {
			return domain.SummaryResult{}, fail(KindCancelled, ctx.Err(), "cancelled during reduce stage")
		}
		return domain.SummaryResult{}, fail(KindReduceStage, err, "synthesis failed")
	}
	state = p.advance(state, StateReduced, "raw_len", len(raw))

	result = Parse(raw)
	if !result.Structured {
		p.logger.Warn("synthesis did not follow the requested format, returning raw text")
	}
	p.advance(state, StateParsed, "key_concepts", len(result.KeyConcepts))

	return result, nil
}

func (p *Pipeline) mapStage(ctx context.Context, chunks []domain.Chunk) (summaries []domain.IntermediateSummary, err error) {
	ctx, span := p.tracer.Start(ctx, "summarizer.map")
	defer func() { telemetry.End(span, err) }()

	return mapChunks(ctx, chunks, p.llm, p.concurrency, p.timeout)
}

func (p *Pipeline) reduceStage(ctx context.Context, summaries []domain.IntermediateSummary) (raw string, err error) {
	ctx, span := p.tracer.Start(ctx, "summarizer.reduce")
	defer func() { telemetry.End(span, err) }()

	callCtx, cancel := withTimeout(ctx, p.timeout)
	defer cancel()

	return Combine(callCtx, summaries, p.llm)
}

func (p *Pipeline) advance(from, to State, args ...any) State {
	p.logger.Debug("pipeline transition", append([]any{"from", from.String(), "to", to.String()}, args...)...)
	return to
}
