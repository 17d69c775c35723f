// Package generation drafts memo text through the LLM collaborator, falling
// back to a templated draft whenever the collaborator is absent or fails.
package generation

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/nfa-builder/internal/llm"
	"github.com/jonathan/nfa-builder/internal/prompts"
	"github.com/jonathan/nfa-builder/internal/sanitize"
	"github.com/jonathan/nfa-builder/internal/types"
)

// Defaults for a generation call.
const (
	DefaultMaxOutputTokens = 300
	DefaultTemperature     = 0.5
)

var fallbackBullets = []string{
	"Event requires proper planning and coordination",
	"Budget allocation needed for successful execution",
	"Administrative approval required for implementation",
}

// Options tunes generation calls.
type Options struct {
	MaxOutputTokens int
	Temperature     float32
	Tier            llm.ModelTier
}

// DefaultOptions returns the token limit and temperature memos are drafted with.
func DefaultOptions() Options {
	return Options{
		MaxOutputTokens: DefaultMaxOutputTokens,
		Temperature:     DefaultTemperature,
		Tier:            llm.TierStandard,
	}
}

// Draft is the raw text handed to the classifier.
type Draft struct {
	Text string
	// Fallback is set when Text is the templated draft.
	Fallback bool
	Model    string
}

// Generator produces raw memo text. A nil client is valid and always yields
// the templated draft.
type Generator struct {
	client llm.Client
	opts   Options
	logger *zap.Logger
}

// New creates a Generator.
func New(client llm.Client, opts Options, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if opts.Tier == "" {
		opts.Tier = llm.TierStandard
	}
	return &Generator{client: client, opts: opts, logger: logger}
}

// Generate drafts memo text for req. It never returns an error; collaborator
// failures are logged and answered with FallbackText.
func (g *Generator) Generate(ctx context.Context, req *types.GenerationRequest) Draft {
	if g.client == nil {
		g.logger.Debug("no LLM client configured, using fallback draft")
		return Draft{Text: FallbackText(req), Fallback: true}
	}

	userPrompt, err := UserPrompt(req)
	if err != nil {
		g.logger.Warn("failed to build generation prompt", zap.Error(err))
		return Draft{Text: FallbackText(req), Fallback: true}
	}

	resp, err := g.client.Complete(ctx, llm.Request{
		SystemRole:      prompts.MustGet(prompts.NFAFile, prompts.KeyGenerateSystem),
		UserPrompt:      userPrompt,
		MaxOutputTokens: g.opts.MaxOutputTokens,
		Temperature:     g.opts.Temperature,
		Tier:            g.opts.Tier,
	})
	if err != nil {
		g.logger.Warn("memo generation failed, using fallback draft",
			zap.String("subject", req.Subject),
			zap.Error(err))
		return Draft{Text: FallbackText(req), Fallback: true}
	}

	text := Normalize(resp.Text)
	if text == "" {
		g.logger.Warn("memo generation returned no text, using fallback draft",
			zap.String("subject", req.Subject))
		return Draft{Text: FallbackText(req), Fallback: true}
	}

	g.logger.Debug("memo drafted",
		zap.String("model", resp.Model),
		zap.Int("chars", len(text)))
	return Draft{Text: text, Model: resp.Model}
}

// UserPrompt renders the user prompt for req, including the table context
// when a table is attached.
func UserPrompt(req *types.GenerationRequest) (string, error) {
	key := prompts.KeyGenerateNoBullets
	if req.WantBullets {
		key = prompts.KeyGenerateBullets
	}

	tableContext := ""
	if len(req.Table) > 0 {
		var err error
		tableContext, err = prompts.Render(prompts.NFAFile, prompts.KeyTableContext, map[string]string{
			"Table": FormatTable(req.Table),
		})
		if err != nil {
			return "", err
		}
	}

	return prompts.Render(prompts.NFAFile, key, map[string]string{
		"Subject":      sanitize.Inline(req.Subject),
		"Summary":      sanitize.Inline(req.Summary),
		"DocumentType": string(req.DocumentType),
		"TableContext": tableContext,
	})
}

// FormatTable renders rows as pipe-separated lines for prompt context.
func FormatTable(table types.TableData) string {
	lines := make([]string, 0, len(table))
	for _, row := range table {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = sanitize.Inline(cell)
		}
		lines = append(lines, strings.Join(cells, " | "))
	}
	return strings.Join(lines, "\n")
}

// FallbackText is the templated draft used without a working collaborator.
func FallbackText(req *types.GenerationRequest) string {
	blocks := []string{
		types.SubjectMarker + " " + sanitize.Inline(req.Subject),
		fmt.Sprintf("Request for approval regarding %s. This proposal requires administrative approval for successful execution.",
			sanitize.Inline(req.Summary)),
	}
	if req.WantBullets {
		bullets := make([]string, len(fallbackBullets))
		for i, b := range fallbackBullets {
			bullets[i] = "• " + b
		}
		blocks = append(blocks, strings.Join(bullets, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// Normalize strips code fences from a model reply and puts each line into
// its own block.
func Normalize(text string) string {
	return llm.NormalizeLines(llm.StripCodeFence(text))
}
