// Package reconcile applies free-form edit instructions to generated memo
// text through the LLM collaborator while keeping the memo's fixed blocks.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/nfa-builder/internal/classify"
	"github.com/jonathan/nfa-builder/internal/llm"
	"github.com/jonathan/nfa-builder/internal/prompts"
	"github.com/jonathan/nfa-builder/internal/types"
)

// Defaults for an edit call. Edits run colder than drafts so untouched
// sentences survive verbatim.
const (
	DefaultMaxOutputTokens = 400
	DefaultTemperature     = 0.1
)

// Options tunes edit calls.
type Options struct {
	MaxOutputTokens int
	Temperature     float32
	Tier            llm.ModelTier
}

// DefaultOptions returns the token limit and temperature edits run with.
func DefaultOptions() Options {
	return Options{
		MaxOutputTokens: DefaultMaxOutputTokens,
		Temperature:     DefaultTemperature,
		Tier:            llm.TierStandard,
	}
}

// Reconciler applies edit instructions. A nil client is valid; every edit is
// then reported as not applied.
type Reconciler struct {
	client     llm.Client
	classifier *classify.Classifier
	opts       Options
	logger     *zap.Logger
}

// New creates a Reconciler. classifier decides which block of a memo is its
// closing clause.
func New(client llm.Client, classifier *classify.Classifier, opts Options, logger *zap.Logger) *Reconciler {
	if classifier == nil {
		classifier = classify.New(classify.DefaultOptions())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxOutputTokens <= 0 {
		opts.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if opts.Tier == "" {
		opts.Tier = llm.TierStandard
	}
	return &Reconciler{client: client, classifier: classifier, opts: opts, logger: logger}
}

// Annotate appends the marker that tells callers an edit was not applied.
func Annotate(existing, instruction string) string {
	return fmt.Sprintf("%s\n\n[Edit not applied: %s]", strings.TrimRight(existing, "\n"), strings.TrimSpace(instruction))
}

// Reconcile applies instruction to existing. Collaborator failures never
// surface as errors: the original text comes back annotated and Applied is
// false.
func (r *Reconciler) Reconcile(ctx context.Context, existing, instruction string) types.EditResult {
	notApplied := types.EditResult{
		Success:    true,
		EditedText: Annotate(existing, instruction),
	}
	if r.client == nil {
		r.logger.Debug("no LLM client configured, edit not applied")
		return notApplied
	}

	userPrompt, err := prompts.Render(prompts.NFAFile, prompts.KeyEditUser, map[string]string{
		"Text":        existing,
		"Instruction": instruction,
	})
	if err != nil {
		r.logger.Warn("failed to build edit prompt", zap.Error(err))
		return notApplied
	}

	resp, err := r.client.Complete(ctx, llm.Request{
		SystemRole:      prompts.MustGet(prompts.NFAFile, prompts.KeyEditSystem),
		UserPrompt:      userPrompt,
		MaxOutputTokens: r.opts.MaxOutputTokens,
		Temperature:     r.opts.Temperature,
		Tier:            r.opts.Tier,
	})
	if err != nil {
		r.logger.Warn("edit failed, returning original text",
			zap.String("instruction", instruction),
			zap.Error(err))
		return notApplied
	}

	edited := normalizeBreaks(llm.StripCodeFence(resp.Text))
	if edited == "" {
		r.logger.Warn("edit returned no text, returning original text",
			zap.String("instruction", instruction))
		return notApplied
	}

	return types.EditResult{
		Success:    true,
		EditedText: r.restore(existing, edited, instruction),
		Applied:    true,
	}
}

// restore puts the original subject line and conclusion block back into
// edited, unless the instruction targets them. A block is only replaced when
// it sits where the replaced text belongs; otherwise the original is inserted
// so no edited text is lost.
func (r *Reconciler) restore(original, edited, instruction string) string {
	lower := strings.ToLower(instruction)
	origBlocks := splitBlocks(normalizeBreaks(original))
	blocks := splitBlocks(edited)
	if len(origBlocks) == 0 || len(blocks) == 0 {
		return edited
	}

	origSubject, _, _ := strings.Cut(origBlocks[0], "\n")
	if !strings.Contains(lower, "subject") && classify.HasSubjectMarker(origSubject) {
		if classify.HasSubjectMarker(blocks[0]) {
			_, rest, hasRest := strings.Cut(blocks[0], "\n")
			blocks[0] = origSubject
			if hasRest {
				blocks[0] += "\n" + rest
			}
		} else {
			blocks = append([]string{origSubject}, blocks...)
		}
	}

	if !strings.Contains(lower, "conclusion") && len(origBlocks) > 1 {
		origConclusion := origBlocks[len(origBlocks)-1]
		if r.classifier.IsConclusionLike(origConclusion) {
			last := len(blocks) - 1
			if last > 0 && r.classifier.IsConclusionLike(blocks[last]) {
				blocks[last] = origConclusion
			} else if blocks[last] != origConclusion {
				blocks = append(blocks, origConclusion)
			}
		}
	}

	return strings.Join(blocks, "\n\n")
}

func normalizeBreaks(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.TrimSpace(text)
}

// splitBlocks splits on blank lines without otherwise touching block text so
// restored blocks stay byte-identical.
func splitBlocks(text string) []string {
	var blocks []string
	for _, part := range strings.Split(text, "\n\n") {
		if part = strings.Trim(part, "\n"); strings.TrimSpace(part) != "" {
			blocks = append(blocks, part)
		}
	}
	return blocks
}
