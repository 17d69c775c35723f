// Package pipeline orchestrates NFA builds: generate or accept text, classify
// it, synthesize the conclusion, resolve signatures, assemble, persist and
// preview.
package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/nfa-builder/internal/assemble"
	"github.com/jonathan/nfa-builder/internal/classify"
	"github.com/jonathan/nfa-builder/internal/conclusion"
	"github.com/jonathan/nfa-builder/internal/db"
	"github.com/jonathan/nfa-builder/internal/generation"
	"github.com/jonathan/nfa-builder/internal/preview"
	"github.com/jonathan/nfa-builder/internal/reconcile"
	"github.com/jonathan/nfa-builder/internal/signatures"
	"github.com/jonathan/nfa-builder/internal/storage"
	"github.com/jonathan/nfa-builder/internal/types"
)

// DefaultBatchLimit bounds concurrent builds in BuildBatch.
const DefaultBatchLimit = 4

// ProgressEvent represents a progress update during a build
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
	RunID    string `json:"run_id,omitempty"`
	Content  any    `json:"content,omitempty"`
}

// ProgressCallback is called when build progress occurs
type ProgressCallback func(event ProgressEvent)

type progressKey struct{}

// WithProgress returns a context whose builds also report to cb, in addition
// to the Builder's own callback.
func WithProgress(ctx context.Context, cb ProgressCallback) context.Context {
	return context.WithValue(ctx, progressKey{}, cb)
}

// Recorder persists run history. *db.DB implements it.
type Recorder interface {
	CreateRun(ctx context.Context, input db.RunInput) (uuid.UUID, error)
	CompleteRun(ctx context.Context, runID uuid.UUID, outcome db.RunOutcome) error
	FailRun(ctx context.Context, runID uuid.UUID, kind, message string) error
	SaveArtifact(ctx context.Context, runID uuid.UUID, step, category string, content any) error
	SaveTextArtifact(ctx context.Context, runID uuid.UUID, step, category, text string) error
}

// Options wires a Builder. Generator, Reconciler, Classifier, Assembler and
// Store are required; the rest are optional.
type Options struct {
	Generator  *generation.Generator
	Reconciler *reconcile.Reconciler
	Classifier *classify.Classifier
	Assembler  *assemble.Assembler
	Store      *storage.Store

	Signatures        signatures.Store
	DefaultSignatures types.SignatureLayout
	Preview           *preview.Renderer
	Recorder          Recorder
	Logger            *zap.Logger
	OnProgress        ProgressCallback
	// NewSource returns the random source for one build's conclusion. Nil
	// uses the process-wide generator.
	NewSource func() conclusion.Source
}

// Builder runs builds. Its fields are read-only after NewBuilder, so builds
// may run concurrently.
type Builder struct {
	generator  *generation.Generator
	reconciler *reconcile.Reconciler
	classifier *classify.Classifier
	assembler  *assemble.Assembler
	store      *storage.Store
	signatures signatures.Store
	defaults   types.SignatureLayout
	preview    *preview.Renderer
	recorder   Recorder
	logger     *zap.Logger
	onProgress ProgressCallback
	newSource  func() conclusion.Source
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) (*Builder, error) {
	if opts.Generator == nil || opts.Reconciler == nil || opts.Classifier == nil || opts.Assembler == nil || opts.Store == nil {
		return nil, fmt.Errorf("pipeline: generator, reconciler, classifier, assembler and store are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DefaultSignatures == (types.SignatureLayout{}) {
		opts.DefaultSignatures = signatures.Defaults()
	}
	if opts.Preview == nil {
		opts.Preview = preview.New()
	}
	return &Builder{
		generator:  opts.Generator,
		reconciler: opts.Reconciler,
		classifier: opts.Classifier,
		assembler:  opts.Assembler,
		store:      opts.Store,
		signatures: opts.Signatures,
		defaults:   opts.DefaultSignatures,
		preview:    opts.Preview,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
		onProgress: opts.OnProgress,
		newSource:  opts.NewSource,
	}, nil
}

// Build generates memo text for req and renders it. The result is always
// populated; on failure it carries the error and its kind, and the returned
// error is a *BuildError.
func (b *Builder) Build(ctx context.Context, req *types.GenerationRequest) (types.BuildResult, error) {
	if req == nil {
		return b.reject(&BuildError{Kind: KindRequest, Message: "request is nil"})
	}
	if err := req.Validate(); err != nil {
		return b.reject(&BuildError{Kind: KindValidation, Message: "invalid generation request", Cause: err})
	}
	return b.run(ctx, req, db.ModeGenerate, func(ctx context.Context) string {
		draft := b.generator.Generate(ctx, req)
		if draft.Fallback {
			b.emit(ctx, db.StepRawText, db.CategoryGeneration, "", "Using fallback draft", nil)
		} else {
			b.emit(ctx, db.StepRawText, db.CategoryGeneration, "", fmt.Sprintf("Drafted memo with %s", draft.Model), nil)
		}
		return draft.Text
	})
}

// BuildFromText renders previously edited text without calling the
// generator. The text still goes through the classifier.
func (b *Builder) BuildFromText(ctx context.Context, req *types.RenderRequest) (types.BuildResult, error) {
	if req == nil {
		return b.reject(&BuildError{Kind: KindRequest, Message: "request is nil"})
	}
	if err := req.Validate(); err != nil {
		return b.reject(&BuildError{Kind: KindValidation, Message: "invalid render request", Cause: err})
	}
	return b.run(ctx, &req.GenerationRequest, db.ModeRender, func(context.Context) string {
		return req.EditedText
	})
}

// Edit applies a free-form instruction to memo text. Collaborator failures
// are reported through EditResult.Applied, not as errors.
func (b *Builder) Edit(ctx context.Context, req *types.EditRequest) (types.EditResult, error) {
	if req == nil {
		return types.EditResult{Error: "request is nil"}, &BuildError{Kind: KindRequest, Message: "request is nil"}
	}
	if err := req.Validate(); err != nil {
		buildErr := &BuildError{Kind: KindValidation, Message: "invalid edit request", Cause: err}
		return types.EditResult{Error: buildErr.Error()}, buildErr
	}

	result := b.reconciler.Reconcile(ctx, req.Text, req.Instruction)
	if !result.Applied {
		b.logger.Warn("edit not applied", zap.String("instruction", req.Instruction))
	}
	return result, nil
}

// BuildBatch runs independent builds with at most limit in flight. One
// failure does not stop the others; results line up with reqs.
func (b *Builder) BuildBatch(ctx context.Context, reqs []*types.GenerationRequest, limit int) []types.BuildResult {
	if limit <= 0 {
		limit = DefaultBatchLimit
	}
	results := make([]types.BuildResult, len(reqs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, req := range reqs {
		g.Go(func() error {
			result, err := b.Build(gCtx, req)
			if err != nil {
				b.logger.Warn("batch build failed", zap.Int("index", i), zap.Error(err))
			}
			results[i] = result
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// run is the shared build sequence. text supplies the raw memo text.
func (b *Builder) run(ctx context.Context, req *types.GenerationRequest, mode string, text func(context.Context) string) (types.BuildResult, error) {
	logger := b.logger.With(zap.String("subject", req.Subject), zap.String("mode", mode))
	runID := b.startRun(ctx, req, mode, logger)
	runIDString := ""
	if runID != uuid.Nil {
		runIDString = runID.String()
	}

	fail := func(err *BuildError) (types.BuildResult, error) {
		logger.Error("build failed", zap.String("kind", err.Kind), zap.Error(err))
		b.failRun(ctx, runID, err, logger)
		result, _ := b.reject(err)
		result.RunID = runIDString
		return result, err
	}

	raw := text(ctx)
	b.saveText(ctx, runID, db.StepRawText, db.CategoryGeneration, raw, logger)

	sections := b.classifier.Classify(raw, req.Subject, req.Summary, req.WantBullets)
	b.emit(ctx, db.StepSections, db.CategoryClassification, runIDString,
		fmt.Sprintf("Classified %d body paragraphs and %d bullets", len(sections.BodyParagraphs), len(sections.Bullets)), sections)
	b.save(ctx, runID, db.StepSections, db.CategoryClassification, sections, logger)

	var src conclusion.Source
	if b.newSource != nil {
		src = b.newSource()
	}
	closing := conclusion.Synthesize(req.DocumentType, src)

	layout := signatures.Resolve(ctx, b.signatures, b.defaults, logger)
	b.emit(ctx, db.StepSignatures, db.CategoryAssembly, runIDString, "Resolved signature layout", layout)
	b.save(ctx, runID, db.StepSignatures, db.CategoryAssembly, layout, logger)

	doc, report, err := b.assembler.Assemble(req, sections, closing, layout)
	if report != nil {
		b.emit(ctx, db.StepViolations, db.CategoryAssembly, runIDString,
			fmt.Sprintf("Checked layout: %d violations", len(report.Violations)), report)
		b.save(ctx, runID, db.StepViolations, db.CategoryAssembly, report, logger)
	}
	if err != nil {
		return fail(&BuildError{Kind: KindAssembly, Message: "failed to assemble document", Cause: err})
	}
	logger.Debug("document assembled", zap.String("layout", assemble.Describe(doc)))

	fileName := storage.FileName(req.DocumentType, req.Subject, mode == db.ModeRender)
	path, size, err := b.store.Write(fileName, doc.Write)
	if err != nil {
		return fail(&BuildError{Kind: KindPersistence, Message: "failed to save document", Cause: err})
	}

	previewText := assemble.PreviewText(doc)
	previewHTML, err := b.preview.HTML(preview.Memo{
		Sections:    sections,
		Conclusion:  closing,
		Table:       req.Table,
		WantBullets: req.WantBullets,
	})
	if err != nil {
		logger.Warn("preview rendering failed", zap.Error(err))
	}
	b.saveText(ctx, runID, db.StepPreview, db.CategoryAssembly, previewText, logger)
	b.emit(ctx, db.StepPreview, db.CategoryAssembly, runIDString, fmt.Sprintf("Saved %s (%d bytes)", fileName, size), nil)

	if b.recorder != nil && runID != uuid.Nil {
		if err := b.recorder.CompleteRun(ctx, runID, db.RunOutcome{FileName: fileName, FilePath: path, PreviewText: previewText}); err != nil {
			logger.Warn("failed to record completed run", zap.Error(err))
		}
	}

	logger.Info("build completed", zap.String("file", path), zap.Int64("bytes", size))
	return types.BuildResult{
		Success:     true,
		FilePath:    path,
		FileName:    fileName,
		PreviewText: previewText,
		PreviewHTML: previewHTML,
		RunID:       runIDString,
	}, nil
}

func (b *Builder) reject(err *BuildError) (types.BuildResult, error) {
	return types.BuildResult{Success: false, Error: err.Error(), ErrorType: err.Kind}, err
}

func (b *Builder) emit(ctx context.Context, step, category, runID, message string, content any) {
	event := ProgressEvent{Step: step, Category: category, Message: message, RunID: runID, Content: content}
	if b.onProgress != nil {
		b.onProgress(event)
	}
	if cb, ok := ctx.Value(progressKey{}).(ProgressCallback); ok && cb != nil {
		cb(event)
	}
}

func (b *Builder) startRun(ctx context.Context, req *types.GenerationRequest, mode string, logger *zap.Logger) uuid.UUID {
	if b.recorder == nil {
		return uuid.Nil
	}
	runID, err := b.recorder.CreateRun(ctx, db.RunInput{
		Subject:      req.Subject,
		Summary:      req.Summary,
		DocumentType: string(req.DocumentType),
		WantBullets:  req.WantBullets,
		Mode:         mode,
	})
	if err != nil {
		logger.Warn("failed to record run, continuing without history", zap.Error(err))
		return uuid.Nil
	}
	b.save(ctx, runID, db.StepRequest, db.CategoryGeneration, req, logger)
	return runID
}

func (b *Builder) failRun(ctx context.Context, runID uuid.UUID, err *BuildError, logger *zap.Logger) {
	if b.recorder == nil || runID == uuid.Nil {
		return
	}
	if recErr := b.recorder.FailRun(ctx, runID, err.Kind, err.Error()); recErr != nil {
		logger.Warn("failed to record failed run", zap.Error(recErr))
	}
}

func (b *Builder) save(ctx context.Context, runID uuid.UUID, step, category string, content any, logger *zap.Logger) {
	if b.recorder == nil || runID == uuid.Nil {
		return
	}
	if err := b.recorder.SaveArtifact(ctx, runID, step, category, content); err != nil {
		logger.Warn("failed to save artifact", zap.String("step", step), zap.Error(err))
	}
}

func (b *Builder) saveText(ctx context.Context, runID uuid.UUID, step, category, text string, logger *zap.Logger) {
	if b.recorder == nil || runID == uuid.Nil {
		return
	}
	if err := b.recorder.SaveTextArtifact(ctx, runID, step, category, text); err != nil {
		logger.Warn("failed to save artifact", zap.String("step", step), zap.Error(err))
	}
}
