// Package batch walks input folders and turns every supported document into
// structured RFP fields.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/hyperifyio/rfpextract/internal/export"
	"github.com/hyperifyio/rfpextract/internal/extract"
	"github.com/hyperifyio/rfpextract/internal/rfp"
	"github.com/hyperifyio/rfpextract/internal/schema"
	"github.com/hyperifyio/rfpextract/internal/sink"
)

// readDir lists a folder; tests replace it to simulate unreadable folders.
var readDir = os.ReadDir

// ErrFolderNotFound marks an input folder that is missing or not a directory.
var ErrFolderNotFound = errors.New("folder does not exist or is not a directory")

// InfoExtractor turns document text into an extraction outcome.
// *rfp.Extractor satisfies it.
type InfoExtractor interface {
	Extract(ctx context.Context, text string) rfp.Outcome
}

// Processor converts the documents of one or more folders.
type Processor struct {
	Extractor InfoExtractor
	// Texts reads documents; nil means extract.FileExtractor{}.
	Texts   extract.Extractor
	Sink    sink.Sink
	Schema  schema.Schema
	Combine bool
	// Workers bounds concurrent documents per folder; values below 1 mean 1.
	Workers int
	// XLSX adds <folder>_processed.xlsx next to the combined JSON.
	XLSX bool
}

// FileResult is the outcome for one input file.
type FileResult struct {
	Path    string
	Index   int
	Outcome rfp.Outcome
	// Skip holds the text extraction error of an unreadable file.
	Skip error
}

// Summary counts what a run did.
type Summary struct {
	Folders        int
	FoldersSkipped int
	Files          int
	Written        int
	Failed         int
	Unparsable     int
	WriteErrors    int
}

func (s *Summary) add(o Summary) {
	s.Folders += o.Folders
	s.FoldersSkipped += o.FoldersSkipped
	s.Files += o.Files
	s.Written += o.Written
	s.Failed += o.Failed
	s.Unparsable += o.Unparsable
	s.WriteErrors += o.WriteErrors
}

func (p *Processor) schema() schema.Schema {
	if len(p.Schema) == 0 {
		return schema.Default
	}
	return p.Schema
}

func (p *Processor) texts() extract.Extractor {
	if p.Texts == nil {
		return extract.FileExtractor{}
	}
	return p.Texts
}

// ProcessFolders prepares the sink and processes each folder in order. Only a
// sink that cannot be prepared, or a cancelled context, returns an error;
// folders that cannot be listed and per-file problems are logged and counted.
func (p *Processor) ProcessFolders(ctx context.Context, folders []string) (Summary, error) {
	var total Summary
	if p.Sink == nil {
		return total, errors.New("batch: no output sink")
	}
	if err := p.Sink.Ensure(ctx); err != nil {
		return total, fmt.Errorf("prepare output: %w", err)
	}
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		s, err := p.ProcessFolder(ctx, folder)
		total.add(s)
		if err == nil {
			continue
		}
		if cerr := ctx.Err(); cerr != nil {
			return total, cerr
		}
		if errors.Is(err, ErrFolderNotFound) {
			log.Warn().Str("folder", folder).Msg("the folder does not exist or is not a directory")
		} else {
			log.Error().Err(err).Str("folder", folder).Msg("folder skipped")
		}
	}
	log.Info().
		Int("folders", total.Folders).
		Int("folders_skipped", total.FoldersSkipped).
		Int("files", total.Files).
		Int("written", total.Written).
		Int("failed", total.Failed).
		Int("unparsable", total.Unparsable).
		Int("write_errors", total.WriteErrors).
		Msg("run summary")
	return total, nil
}

// ProcessFolder handles one folder. It returns ErrFolderNotFound (wrapped)
// when folder is not a directory.
func (p *Processor) ProcessFolder(ctx context.Context, folder string) (Summary, error) {
	var sum Summary
	files, err := ListDocuments(folder)
	if err != nil {
		sum.FoldersSkipped = 1
		return sum, err
	}
	sum.Folders = 1
	sum.Files = len(files)
	log.Info().Str("folder", folder).Int("files", len(files)).Msg("processing folder")

	results := make([]FileResult, len(files))
	var mu sync.Mutex
	record := func(fn func(*Summary)) {
		mu.Lock()
		fn(&sum)
		mu.Unlock()
	}

	workers := p.Workers
	if workers < 1 {
		workers = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(workers)
	// Files sharing an output name run in one task, in listing order, so the
	// later file overwrites the earlier one regardless of worker count.
	for _, group := range groupByStem(files, !p.Combine) {
		g.Go(func() error {
			for _, i := range group {
				if err := ctx.Err(); err != nil {
					return err
				}
				res := p.processIndexed(ctx, i, files[i])
				results[i] = res
				switch {
				case res.Skip != nil:
					record(func(s *Summary) { s.Unparsable++ })
					continue
				case res.Outcome.Failed():
					record(func(s *Summary) { s.Failed++ })
					log.Warn().Err(res.Outcome.Err).Str("path", res.Path).Msg("no data extracted; file dropped")
					continue
				}
				if !p.Combine {
					written := p.writeFile(ctx, res)
					record(func(s *Summary) {
						if written {
							s.Written++
						} else {
							s.WriteErrors++
						}
					})
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}

	if p.Combine {
		w, e := p.writeCombined(ctx, folder, results)
		sum.Written += w
		sum.WriteErrors += e
	}
	return sum, nil
}

// ProcessFile extracts one document. ok is false for unsupported extensions.
// A document that cannot be read yields a failed outcome wrapping the
// *extract.DocumentParseError.
func (p *Processor) ProcessFile(ctx context.Context, path string) (rfp.Outcome, bool) {
	if !extract.IsSupported(path) {
		log.Info().Str("path", path).Msg("unsupported file format")
		return rfp.Outcome{}, false
	}
	log.Info().Str("path", path).Msg("processing file")
	doc, err := p.texts().Extract(ctx, path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("could not read document")
		return rfp.Outcome{Err: err}, true
	}
	if p.Extractor == nil {
		return rfp.Outcome{Err: fmt.Errorf("%w: no information extractor", rfp.ErrModelCall)}, true
	}
	return p.Extractor.Extract(ctx, doc.Text), true
}

func (p *Processor) processIndexed(ctx context.Context, i int, path string) FileResult {
	res := FileResult{Path: path, Index: i}
	out, _ := p.ProcessFile(ctx, path)
	var perr *extract.DocumentParseError
	if errors.As(out.Err, &perr) {
		res.Skip = out.Err
		return res
	}
	res.Outcome = out
	return res
}

func (p *Processor) writeFile(ctx context.Context, res FileResult) bool {
	name := OutputName(res.Path)
	data, err := p.schema().MarshalFields(res.Outcome.Fields)
	if err != nil {
		log.Error().Err(err).Str("path", res.Path).Msg("encode result")
		return false
	}
	if err := p.Sink.Write(ctx, name, data); err != nil {
		log.Error().Err(err).Str("path", res.Path).Str("out", p.Sink.Location(name)).Msg("write result")
		return false
	}
	log.Info().Str("path", res.Path).Str("out", p.Sink.Location(name)).Msg("structured data saved")
	return true
}

func (p *Processor) writeCombined(ctx context.Context, folder string, results []FileResult) (written, failed int) {
	var rows []schema.Fields
	var sources []string
	for _, r := range results {
		if r.Skip != nil || r.Outcome.Failed() {
			continue
		}
		rows = append(rows, r.Outcome.Fields)
		sources = append(sources, filepath.Base(r.Path))
	}
	if len(rows) == 0 {
		log.Info().Str("folder", folder).Msg("no results to combine; nothing written")
		return 0, 0
	}

	base := CombinedBaseName(folder)
	data, err := p.schema().MarshalList(rows)
	if err != nil {
		log.Error().Err(err).Str("folder", folder).Msg("encode combined results")
		return 0, 1
	}
	name := base + ".json"
	if err := p.Sink.Write(ctx, name, data); err != nil {
		log.Error().Err(err).Str("folder", folder).Str("out", p.Sink.Location(name)).Msg("write combined results")
		return 0, 1
	}
	written++
	log.Info().Str("folder", folder).Int("rows", len(rows)).Str("out", p.Sink.Location(name)).Msg("combined structured data saved")

	if !p.XLSX {
		return written, failed
	}
	book, err := export.XLSX(p.schema(), rows, sources)
	if err != nil {
		log.Error().Err(err).Str("folder", folder).Msg("render spreadsheet")
		return written, failed + 1
	}
	name = base + ".xlsx"
	if err := p.Sink.Write(ctx, name, book); err != nil {
		log.Error().Err(err).Str("out", p.Sink.Location(name)).Msg("write spreadsheet")
		return written, failed + 1
	}
	log.Info().Str("folder", folder).Str("out", p.Sink.Location(name)).Msg("spreadsheet saved")
	return written + 1, failed
}

// ListDocuments returns the supported regular files directly inside folder,
// sorted by name. Symlinks to regular files count as files.
func ListDocuments(folder string) ([]string, error) {
	info, err := os.Stat(folder)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrFolderNotFound, folder)
	}
	entries, err := readDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", folder, err)
	}
	var out []string
	for _, e := range entries {
		path := filepath.Join(folder, e.Name())
		if !extract.IsSupported(path) {
			continue
		}
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		out = append(out, path)
	}
	sort.Strings(out)
	return out, nil
}

// OutputName maps an input path to its per-file artifact name: the file name
// with its extension replaced by ".json".
func OutputName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".json"
}

// CombinedBaseName returns "<folder basename>_processed".
func CombinedBaseName(folder string) string {
	return filepath.Base(filepath.Clean(folder)) + "_processed"
}

// groupByStem groups file indices by output name, ordered by first
// occurrence. With warn set, a collision is logged once per extra file.
func groupByStem(files []string, warn bool) [][]int {
	pos := make(map[string]int, len(files))
	var groups [][]int
	for i, f := range files {
		name := OutputName(f)
		if g, ok := pos[name]; ok {
			if warn {
				log.Warn().Str("path", f).Str("out", name).Msg("output name collides with an earlier file; the later file wins")
			}
			groups[g] = append(groups[g], i)
			continue
		}
		pos[name] = len(groups)
		groups = append(groups, []int{i})
	}
	return groups
}
