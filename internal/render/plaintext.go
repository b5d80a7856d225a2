package render

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/unicode/norm"

	"github.com/vaultsandbox/outbound-go/internal/prefs"
)

var (
	spaceRun   = regexp.MustCompile(`[ \t\f\r]+`)
	lineEdge   = regexp.MustCompile(` *\n *`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// block elements end the current line and start a new paragraph.
var block = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Fieldset: true, atom.Figcaption: true, atom.Figure: true, atom.Footer: true,
	atom.Form: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.Header: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Nav: true,
	atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true,
	atom.Table: true, atom.Tr: true, atom.Ul: true,
}

// hidden elements carry no visible text.
var hidden = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Template: true,
	atom.Noscript: true, atom.Title: true,
}

// Plaintext returns the plaintext form of doc. A plaintext document is
// returned unchanged.
func Plaintext(doc Document) (string, error) {
	if doc.MIMEType != prefs.MIMEHTML {
		return doc.Body, nil
	}
	return HTMLToPlaintext(doc.Body)
}

// HTMLToPlaintext extracts the visible text of an HTML document. Line breaks
// in the text are kept, other whitespace runs become one space, every line is
// trimmed and paragraphs are separated by exactly one blank line. The result
// is in Unicode NFC and converting it again returns it unchanged.
func HTMLToPlaintext(src string) (string, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", err
	}

	var w textWriter
	w.walk(root)
	return normalize(w.b.String()), nil
}

// normalize is a fixed point: normalize(normalize(s)) == normalize(s).
func normalize(s string) string {
	s = spaceRun.ReplaceAllString(s, " ")
	s = lineEdge.ReplaceAllString(s, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return norm.NFC.String(strings.Trim(s, " \n"))
}

type textWriter struct {
	b strings.Builder
	// inline is false at the start of a line, where leading whitespace
	// from the source is dropped.
	inline bool
}

func (w *textWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text(n.Data)
		return
	case html.ElementNode:
		if hidden[n.DataAtom] {
			return
		}
		if n.DataAtom == atom.Br {
			w.b.WriteByte('\n')
			w.inline = false
			return
		}
	}

	if n.Type == html.ElementNode && block[n.DataAtom] {
		w.paragraph()
		if n.DataAtom == atom.Li {
			w.b.WriteString("- ")
		}
		defer w.paragraph()
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}

	if n.Type == html.ElementNode && (n.DataAtom == atom.Td || n.DataAtom == atom.Th) {
		w.b.WriteByte(' ')
	}
}

func (w *textWriter) text(s string) {
	if !w.inline {
		s = strings.TrimLeft(s, " \t\f\r\n")
	}
	if s == "" {
		return
	}
	w.b.WriteString(s)
	w.inline = true
}

func (w *textWriter) paragraph() {
	w.inline = false
	if w.b.Len() == 0 {
		return
	}
	w.b.WriteString("\n\n")
}
