package extract

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"
)

// PageSeparator is written between the text of consecutive PDF pages.
const PageSeparator = "\f"

// FromPDFFile extracts the text of every page of the PDF at path, in page
// order. Unless skipPreflight is set, the file is first validated with
// pdfcpu; a failed validation only becomes an error if text extraction fails
// as well, so that slightly malformed files the reader tolerates still pass.
func FromPDFFile(path string, skipPreflight bool) (Document, error) {
	doc := Document{Path: path, Format: FormatPDF}

	var preflightErr error
	if !skipPreflight {
		doc.Pages, preflightErr = preflightPDF(path)
		if preflightErr != nil {
			log.Debug().Err(preflightErr).Str("path", path).Msg("pdf preflight failed; trying text extraction anyway")
		}
	}

	text, pages, err := readPDFText(path)
	if err != nil {
		return Document{}, errors.Join(err, preflightErr)
	}
	if doc.Pages == 0 {
		doc.Pages = pages
	} else if doc.Pages != pages {
		log.Debug().Str("path", path).Int("pdfcpu_pages", doc.Pages).Int("reader_pages", pages).Msg("pdf page count mismatch")
	}
	doc.Text = text
	return doc, nil
}

func preflightPDF(path string) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return 0, fmt.Errorf("validate pdf: %w", err)
	}
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return n, nil
}

// readPDFText recovers from reader panics, which malformed content streams
// can trigger, and reports them as errors.
func readPDFText(path string) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages = r.NumPage()
	var b strings.Builder
	for i := 1; i <= pages; i++ {
		if i > 1 {
			b.WriteString(PageSeparator)
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		s, err := p.GetPlainText(nil)
		if err != nil {
			return "", 0, fmt.Errorf("page %d: %w", i, err)
		}
		b.WriteString(s)
	}
	return b.String(), pages, nil
}
