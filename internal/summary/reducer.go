package summary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"LiteratureHarvester/internal/apperr"
	"LiteratureHarvester/internal/domain"
	"LiteratureHarvester/internal/ports"
)

// Reducer folds an arbitrarily long list of ranked documents into one
// running summary bounded by the model's context window. Each document is
// folded sequentially; concatenating the whole corpus into a single
// prompt would blow the window for even modest top-K values.
type Reducer struct {
	generator     ports.Generator
	contextWindow int
	safetyBuffer  int
	logger        *slog.Logger
}

var _ ports.Reducer = (*Reducer)(nil)

// NewReducer wires the generation backend. contextWindow is the model's
// maximum context in tokens; safetyBuffer absorbs estimator slack.
func NewReducer(generator ports.Generator, contextWindow int, logger *slog.Logger) *Reducer {
	if contextWindow <= 0 {
		contextWindow = 2048
	}
	return &Reducer{
		generator:     generator,
		contextWindow: contextWindow,
		safetyBuffer:  32,
		logger:        logger,
	}
}

// Summarize threads a single running summary through every document.
// State transitions: the generated continuation replaces the summary
// entirely, it is never appended. Documents with an empty abstract are
// skipped without counting as a transition.
func (r *Reducer) Summarize(ctx context.Context, queryAbstract string, docs []domain.AbstractRecord, p domain.GenerationParams) (string, error) {
	if r.generator == nil {
		return "", fmt.Errorf("generation backend not configured: %w", apperr.ErrUnavailable)
	}

	running := ""

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if strings.TrimSpace(doc.Abstract) == "" {
			continue
		}

		prompt := buildPrompt(running, doc, queryAbstract)
		if excess := r.estimate(prompt, p) - r.contextWindow; excess > 0 {
			trimmed := trimFront(running, excess)
			if r.logger != nil {
				r.logger.Debug("trimmed running summary",
					"excess_tokens", excess,
					"before", countTokens(running),
					"after", countTokens(trimmed))
			}
			running = trimmed
			prompt = buildPrompt(running, doc, queryAbstract)
		}

		out, err := r.generator.Generate(ctx, prompt, p)
		if err != nil {
			return "", fmt.Errorf("fold document: %w", err)
		}
		running = strings.TrimSpace(out)
	}

	return running, nil
}

// estimate is the token cost of one generation call: the prompt itself,
// the requested continuation, and the safety buffer.
func (r *Reducer) estimate(prompt string, p domain.GenerationParams) int {
	return countTokens(prompt) + p.MaxNewTokens + r.safetyBuffer
}
