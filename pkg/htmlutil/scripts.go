package htmlutil

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Script is one <script> element of a page.
type Script struct {
	ID   string
	Type string
	Text string
}

// Document is a parsed HTML page that answers script and meta queries.
type Document struct {
	doc *goquery.Document
}

// Parse parses an HTML document. The x/net/html parser accepts any input,
// so errors only come from the underlying reader.
func Parse(body []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{doc: goquery.NewDocumentFromNode(root)}, nil
}

// Scripts returns every script element in document order.
func (d *Document) Scripts() []Script {
	var out []Script
	d.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		out = append(out, toScript(s))
	})
	return out
}

// ScriptByID returns the first script whose id attribute equals id.
func (d *Document) ScriptByID(id string) (Script, bool) {
	var found Script
	ok := false
	d.doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if v, _ := s.Attr("id"); v == id {
			found, ok = toScript(s), true
			return false
		}
		return true
	})
	return found, ok
}

// ScriptsByType returns scripts whose type attribute equals typ, ignoring case.
func (d *Document) ScriptsByType(typ string) []Script {
	var out []Script
	d.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if v, _ := s.Attr("type"); strings.EqualFold(strings.TrimSpace(v), typ) {
			out = append(out, toScript(s))
		}
	})
	return out
}

// ScriptsContaining returns scripts whose text contains marker.
func (d *Document) ScriptsContaining(marker string) []Script {
	var out []Script
	for _, s := range d.Scripts() {
		if strings.Contains(s.Text, marker) {
			out = append(out, s)
		}
	}
	return out
}

// Title returns the trimmed <title> text.
func (d *Document) Title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

func toScript(s *goquery.Selection) Script {
	id, _ := s.Attr("id")
	typ, _ := s.Attr("type")
	return Script{ID: id, Type: typ, Text: s.Text()}
}
