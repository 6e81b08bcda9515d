package extract

import (
    "bytes"
    "fmt"
    "strings"

    "golang.org/x/net/html"
    "golang.org/x/net/html/charset"
)

// Document is the plain-text form of one input file.
type Document struct {
    Path   string
    Format Format
    Title  string
    Text   string
    // Pages is the PDF page count; zero for HTML.
    Pages int
}

// FromHTML returns the visible text of an HTML document: every text node
// outside script/style/template containers, in document order, joined with
// newlines. Text nodes are emitted verbatim, whitespace-only ones included.
// The input encoding is sniffed from BOM and <meta charset>, defaulting to UTF-8.
func FromHTML(input []byte) (Document, error) {
    r, err := charset.NewReader(bytes.NewReader(input), "text/html")
    if err != nil {
        return Document{}, fmt.Errorf("detect charset: %w", err)
    }
    node, err := html.Parse(r)
    if err != nil {
        return Document{}, fmt.Errorf("parse html: %w", err)
    }
    var parts []string
    collectText(node, &parts)
    return Document{
        Format: FormatHTML,
        Title:  strings.TrimSpace(findTitle(node)),
        Text:   strings.Join(parts, "\n"),
    }, nil
}

func findTitle(n *html.Node) string {
    head := findFirst(n, "head")
    if head == nil {
        return ""
    }
    t := findFirst(head, "title")
    if t == nil || t.FirstChild == nil {
        return ""
    }
    return t.FirstChild.Data
}

func findFirst(n *html.Node, tag string) *html.Node {
    var res *html.Node
    var dfs func(*html.Node)
    dfs = func(cur *html.Node) {
        if res != nil {
            return
        }
        if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, tag) {
            res = cur
            return
        }
        for c := cur.FirstChild; c != nil; c = c.NextSibling {
            dfs(c)
            if res != nil {
                return
            }
        }
    }
    dfs(n)
    return res
}

func collectText(n *html.Node, parts *[]string) {
    switch n.Type {
    case html.CommentNode, html.DoctypeNode:
        return
    case html.TextNode:
        if n.Data != "" {
            *parts = append(*parts, n.Data)
        }
        return
    case html.ElementNode:
        if isHiddenContainer(n) {
            return
        }
    }
    for c := n.FirstChild; c != nil; c = c.NextSibling {
        collectText(c, parts)
    }
}

// isHiddenContainer reports elements whose children are never rendered as text.
func isHiddenContainer(n *html.Node) bool {
    switch strings.ToLower(n.Data) {
    case "script", "style", "template":
        return true
    }
    return false
}
