package research

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"twinai-be/internal/pkg/logger"
	"twinai-be/pkg/llm"

	"golang.org/x/sync/errgroup"
)

const module = "RESEARCH"

var ErrAllSourcesFailed = errors.New("no research source returned anything")

const summaryPrompt = `You are a research assistant. Using only the findings below, write a clear,
well-structured summary of "%s" in markdown. Start with a short overview, then key points.
Do not invent facts that are not in the findings.

%s`

type Service struct {
	sources     []Source
	llmProvider llm.LLMProvider
	logger      logger.ILogger
}

func NewService(llmProvider llm.LLMProvider, log logger.ILogger, sources ...Source) *Service {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Service{sources: sources, llmProvider: llmProvider, logger: log}
}

// Research queries every source in parallel and has the model summarize
// whatever came back. A failed summary still returns the raw findings.
func (s *Service) Research(ctx context.Context, topic string) (string, error) {
	findings := make([]*Finding, len(s.sources))

	var g errgroup.Group
	for i, src := range s.sources {
		i, src := i, src
		g.Go(func() error {
			f, err := src.Fetch(ctx, topic)
			if err != nil {
				s.logger.Warn(module, "Source failed", map[string]interface{}{
					"source": src.Name(),
					"topic":  topic,
					"error":  err,
				})
				return nil
			}
			findings[i] = &f
			return nil
		})
	}
	_ = g.Wait()

	var found []Finding
	for _, f := range findings {
		if f != nil {
			found = append(found, *f)
		}
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%w: %s", ErrAllSourcesFailed, topic)
	}

	var raw strings.Builder
	for _, f := range found {
		fmt.Fprintf(&raw, "### %s: %s\n%s\n\n", f.Source, f.Title, f.Content)
	}

	summary, err := s.llmProvider.Generate(ctx, fmt.Sprintf(summaryPrompt, topic, raw.String()),
		llm.WithTemperature(0.3),
		llm.WithMaxTokens(800),
	)
	summary = strings.TrimSpace(summary)
	if err != nil || summary == "" {
		s.logger.Warn(module, "Summary failed, returning raw findings", map[string]interface{}{"error": err})
		summary = strings.TrimSpace(raw.String())
	}

	return fmt.Sprintf("## %s\n\n%s\n\n%s", topic, summary, sourceList(found)), nil
}

func sourceList(found []Finding) string {
	var b strings.Builder
	b.WriteString("**Sources**")
	for _, f := range found {
		if f.Link == "" {
			continue
		}
		fmt.Fprintf(&b, "\n- *%s*: [%s](%s)", f.Source, f.Title, f.Link)
	}
	return b.String()
}
