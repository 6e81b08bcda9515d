package extract

import (
    "context"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
)

// Format is the kind of document a file holds, derived from its extension.
type Format string

const (
    FormatHTML Format = "html"
    FormatPDF  Format = "pdf"
)

// ErrUnsupportedFormat is returned for extensions outside SupportedExtensions.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// SupportedExtensions maps lowercased extensions to their format.
var SupportedExtensions = map[string]Format{
    ".html": FormatHTML,
    ".htm":  FormatHTML,
    ".pdf":  FormatPDF,
}

// FormatFromPath returns the format of path by case-insensitive extension.
func FormatFromPath(path string) (Format, error) {
    ext := strings.ToLower(filepath.Ext(path))
    if f, ok := SupportedExtensions[ext]; ok {
        return f, nil
    }
    return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
}

// IsSupported reports whether path has a supported extension.
func IsSupported(path string) bool {
    _, err := FormatFromPath(path)
    return err == nil
}

// DocumentParseError wraps any failure to read or parse an input file.
type DocumentParseError struct {
    Path   string
    Format Format
    Err    error
}

func (e *DocumentParseError) Error() string {
    return fmt.Sprintf("parse %s document %s: %v", e.Format, e.Path, e.Err)
}

func (e *DocumentParseError) Unwrap() error { return e.Err }

// Extractor converts one input file into a Document.
// Implementations must be safe for concurrent use.
type Extractor interface {
    Extract(ctx context.Context, path string) (Document, error)
}

// FileExtractor dispatches on the file extension to the HTML or PDF reader.
type FileExtractor struct {
    // SkipPDFPreflight disables pdfcpu validation before text extraction.
    SkipPDFPreflight bool
}

func (e FileExtractor) Extract(ctx context.Context, path string) (Document, error) {
    if err := ctx.Err(); err != nil {
        return Document{}, err
    }
    format, err := FormatFromPath(path)
    if err != nil {
        return Document{}, err
    }
    var doc Document
    switch format {
    case FormatHTML:
        var b []byte
        b, err = os.ReadFile(path)
        if err == nil {
            doc, err = FromHTML(b)
        }
    case FormatPDF:
        doc, err = FromPDFFile(path, e.SkipPDFPreflight)
    }
    if err != nil {
        return Document{}, &DocumentParseError{Path: path, Format: format, Err: err}
    }
    doc.Path = path
    doc.Format = format
    return doc, nil
}

// Text extracts the plain text of path with the default FileExtractor.
func Text(ctx context.Context, path string) (string, error) {
    doc, err := FileExtractor{}.Extract(ctx, path)
    if err != nil {
        return "", err
    }
    return doc.Text, nil
}
