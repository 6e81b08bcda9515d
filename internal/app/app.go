package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/rfpextract/internal/batch"
	"github.com/hyperifyio/rfpextract/internal/extract"
	"github.com/hyperifyio/rfpextract/internal/llm"
	"github.com/hyperifyio/rfpextract/internal/rfp"
	"github.com/hyperifyio/rfpextract/internal/sink"
)

type App struct {
	cfg     Config
	runID   string
	client  llm.Client
	sink    sink.Sink
	texts   extract.FileExtractor
	closers []io.Closer
}

// New validates cfg and builds the model client and output sink. cfg must
// already carry defaults (see ApplyDefaults).
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	a := &App{
		cfg:   cfg,
		runID: uuid.NewString(),
		texts: extract.FileExtractor{SkipPDFPreflight: cfg.SkipPDFPreflight},
	}
	if cfg.DryRun {
		return a, nil
	}

	client, err := a.newClient(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.client = client

	s, err := sink.Open(ctx, cfg.OutputDir, sink.S3OptionsFromEnv())
	if err != nil {
		a.Close()
		return nil, &StartupConfigError{Field: "output_dir", Reason: err.Error()}
	}
	if c, ok := s.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	a.sink = s
	return a, nil
}

func (a *App) newClient(ctx context.Context) (llm.Client, error) {
	switch a.cfg.LLMProvider {
	case ProviderVertex:
		p, err := llm.NewVertex(ctx, a.cfg.VertexProject, a.cfg.VertexLocation)
		if err != nil {
			return nil, fmt.Errorf("init vertex: %w", err)
		}
		a.closers = append(a.closers, p)
		return p, nil
	default:
		p := llm.NewOpenAI(a.cfg.LLMAPIKey, a.cfg.LLMBaseURL, newLLMHTTPClient(a.cfg.HTTPTimeout, a.cfg.LLMInsecure))
		a.preflightModels(ctx, p)
		return p, nil
	}
}

// preflightModels lists models as a best-effort connectivity check. It never
// fails startup.
func (a *App) preflightModels(ctx context.Context, lister llm.ModelLister) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	models, err := lister.ListModels(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("LLM model list failed; continuing")
		return
	}
	if len(models.Models) == 0 {
		log.Warn().Msg("LLM returned zero models")
		return
	}
	for _, m := range models.Models {
		if strings.EqualFold(m.ID, a.cfg.LLMModel) {
			log.Debug().Int("count", len(models.Models)).Str("model", a.cfg.LLMModel).Msg("LLM model available")
			return
		}
	}
	log.Warn().Int("count", len(models.Models)).Str("model", a.cfg.LLMModel).Msg("configured model not listed by the server")
}

// RunID identifies this run in logs.
func (a *App) RunID() string { return a.runID }

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			log.Debug().Err(err).Msg("close")
		}
	}
	a.closers = nil
}

// Processor returns the folder processor wired to this app's client and sink.
func (a *App) Processor() *batch.Processor {
	return &batch.Processor{
		Extractor: &rfp.Extractor{
			Client:       a.client,
			Model:        a.cfg.LLMModel,
			Temperature:  float32(a.cfg.LLMTemperature),
			MaxTokens:    a.cfg.LLMMaxTokens,
			SystemPrompt: a.cfg.SystemPrompt,
			MaxAttempts:  a.cfg.LLMAttempts,
			RetryBackoff: a.cfg.LLMRetryBackoff,
			Verbose:      a.cfg.Verbose,
		},
		Texts:   a.texts,
		Sink:    a.sink,
		Combine: a.cfg.Combine,
		Workers: a.cfg.Workers,
		XLSX:    a.cfg.XLSX,
	}
}

// Run processes every configured folder. Per-file failures are logged and
// counted in the summary; only setup problems and cancellation are errors.
func (a *App) Run(ctx context.Context) (batch.Summary, error) {
	start := time.Now()
	log.Info().
		Str("output", a.cfg.OutputDir).
		Strs("folders", a.cfg.Folders).
		Bool("combine", a.cfg.Combine).
		Str("provider", a.cfg.LLMProvider).
		Str("model", a.cfg.LLMModel).
		Int("workers", a.cfg.Workers).
		Bool("dry_run", a.cfg.DryRun).
		Msg("run started")

	var (
		sum batch.Summary
		err error
	)
	if a.cfg.DryRun {
		sum, err = a.dryRun(ctx)
	} else {
		sum, err = a.Processor().ProcessFolders(ctx, a.cfg.Folders)
	}
	if errors.Is(err, context.Canceled) {
		log.Warn().Dur("elapsed", time.Since(start)).Msg("run cancelled; files already written are kept")
		return sum, err
	}
	if err != nil {
		return sum, err
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("run finished")
	return sum, nil
}
