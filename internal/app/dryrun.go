package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/rfpextract/internal/batch"
	"github.com/hyperifyio/rfpextract/internal/budget"
	"github.com/hyperifyio/rfpextract/internal/rfp"
	"github.com/hyperifyio/rfpextract/internal/schema"
)

// dryRun reads every document and reports the prompt size it would send,
// without calling the model or writing anything.
func (a *App) dryRun(ctx context.Context) (batch.Summary, error) {
	var sum batch.Summary
	system := a.cfg.SystemPrompt
	if system == "" {
		system = rfp.DefaultSystemPrompt
	}
	for _, folder := range a.cfg.Folders {
		files, err := batch.ListDocuments(folder)
		if err != nil {
			if errors.Is(err, batch.ErrFolderNotFound) {
				log.Warn().Str("folder", folder).Msg("the folder does not exist or is not a directory")
			} else {
				log.Error().Err(err).Str("folder", folder).Msg("folder skipped")
			}
			sum.FoldersSkipped++
			continue
		}
		sum.Folders++
		sum.Files += len(files)
		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			doc, err := a.texts.Extract(ctx, path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("could not read document")
				sum.Unparsable++
				continue
			}
			est := budget.Check(a.cfg.LLMModel, a.cfg.LLMMaxTokens, system, rfp.BuildPrompt(schema.Default, doc.Text))
			log.Info().
				Str("path", path).
				Str("format", string(doc.Format)).
				Int("pages", doc.Pages).
				Int("chars", len(doc.Text)).
				Int("prompt_tokens", est.PromptTokens).
				Int("context", est.ModelContext).
				Bool("fits", est.Fits).
				Str("out", batch.OutputName(path)).
				Msg("dry run")
		}
	}
	log.Info().
		Int("folders", sum.Folders).
		Int("folders_skipped", sum.FoldersSkipped).
		Int("files", sum.Files).
		Int("unparsable", sum.Unparsable).
		Msg("dry run summary")
	return sum, nil
}
