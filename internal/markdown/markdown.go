// Package markdown converts assistant markdown into the restricted HTML
// vocabulary accepted by the note app.
package markdown

import (
	"bytes"
	"html"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/starford/chatnotes/internal/transform"
)

const imageStyle = "max-width: 100%; max-height: 100%;"

// Converter renders markdown through goldmark's parser and a custom AST walk.
type Converter struct {
	md goldmark.Markdown
}

// New returns a Converter with GFM tables enabled.
func New() *Converter {
	return &Converter{
		md: goldmark.New(goldmark.WithExtensions(extension.Table)),
	}
}

// ToHTML converts markdown to note HTML. Math spans are protected before
// parsing and restored afterwards, then block spacing is normalised.
func (c *Converter) ToHTML(src string) string {
	protected, math := transform.ProtectMath(src)
	source := []byte(protected)
	doc := c.md.Parser().Parse(text.NewReader(source))

	w := &walker{source: source}
	_ = ast.Walk(doc, w.visit)

	out := math.Restore(w.buf.String())
	return transform.AddBlockSpacing(out)
}

type listFrame struct {
	ordered bool
	counter int
}

// walker carries all render state for one document.
type walker struct {
	buf    bytes.Buffer
	source []byte
	lists  []listFrame
}

func (w *walker) visit(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := n.(type) {
	case *ast.Document:
	case *ast.Paragraph:
		w.tag(entering, "<div>", "</div>\n")
	case *ast.TextBlock:
		if !entering && node.NextSibling() != nil && node.FirstChild() != nil {
			w.buf.WriteByte('\n')
		}
	case *ast.Heading:
		w.heading(node.Level, entering)
	case *ast.ThematicBreak:
		if entering {
			w.buf.WriteString(transform.Spacer + "\n")
		}
	case *ast.CodeBlock, *ast.FencedCodeBlock:
		if entering {
			w.buf.WriteString("<pre>")
			w.writeLines(n)
			w.buf.WriteString("</pre>\n")
		}
		return ast.WalkSkipChildren, nil
	case *ast.HTMLBlock:
		if entering {
			w.buf.WriteString("<div>")
			var raw bytes.Buffer
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				raw.Write(seg.Value(w.source))
			}
			if node.HasClosure() {
				raw.Write(node.ClosureLine.Value(w.source))
			}
			w.buf.WriteString(html.EscapeString(string(bytes.TrimRight(raw.Bytes(), "\n"))))
			w.buf.WriteString("</div>\n")
		}
		return ast.WalkSkipChildren, nil
	case *ast.Blockquote:
		w.tag(entering, "<blockquote>\n", "</blockquote>\n")
	case *ast.List:
		if entering {
			w.lists = append(w.lists, listFrame{ordered: node.IsOrdered()})
		} else if len(w.lists) > 0 {
			w.lists = w.lists[:len(w.lists)-1]
		}
	case *ast.ListItem:
		if entering {
			w.buf.WriteString(w.itemPrefix())
		} else {
			w.buf.WriteString("</div>\n")
		}
	case *east.Table:
		w.tag(entering, "<table>\n", "</table>\n")
	case *east.TableHeader, *east.TableRow:
		w.tag(entering, "<tr>\n", "</tr>\n")
	case *east.TableCell:
		cell := "td"
		if _, ok := node.Parent().(*east.TableHeader); ok {
			cell = "th"
		}
		w.tag(entering, "<"+cell+">", "</"+cell+">\n")
	case *ast.Text:
		if entering {
			w.writeText(node.Segment.Value(w.source), node.IsRaw())
			switch {
			case node.HardLineBreak():
				w.buf.WriteString("<br>\n")
			case node.SoftLineBreak():
				w.buf.WriteByte('\n')
			}
		}
	case *ast.String:
		if entering {
			w.writeText(node.Value, node.IsRaw())
		}
	case *ast.CodeSpan:
		if entering {
			w.buf.WriteString("<tt>")
			for c := node.FirstChild(); c != nil; c = c.NextSibling() {
				if t, ok := c.(*ast.Text); ok {
					w.buf.WriteString(html.EscapeString(string(t.Segment.Value(w.source))))
				}
			}
			w.buf.WriteString("</tt>")
		}
		return ast.WalkSkipChildren, nil
	case *ast.Emphasis:
		if node.Level >= 2 {
			w.tag(entering, "<b>", "</b>")
		} else {
			w.tag(entering, "<i>", "</i>")
		}
	case *ast.Link:
		w.tag(entering, `<a href="`+html.EscapeString(string(node.Destination))+`">`, "</a>")
	case *ast.AutoLink:
		if entering {
			url := string(node.URL(w.source))
			if node.AutoLinkType == ast.AutoLinkEmail && !bytes.HasPrefix(bytes.ToLower([]byte(url)), []byte("mailto:")) {
				url = "mailto:" + url
			}
			w.buf.WriteString(`<a href="` + html.EscapeString(url) + `">`)
			w.buf.WriteString(html.EscapeString(string(node.Label(w.source))))
			w.buf.WriteString("</a>")
		}
		return ast.WalkSkipChildren, nil
	case *ast.Image:
		if entering {
			w.buf.WriteString(`<div><img src="` + html.EscapeString(string(node.Destination)) + `" style="` + imageStyle + `"></div>` + "\n")
		}
		return ast.WalkSkipChildren, nil
	case *ast.RawHTML:
		if entering {
			segs := node.Segments
			for i := 0; i < segs.Len(); i++ {
				seg := segs.At(i)
				w.buf.WriteString(html.EscapeString(string(seg.Value(w.source))))
			}
		}
		return ast.WalkSkipChildren, nil
	}
	return ast.WalkContinue, nil
}

func (w *walker) tag(entering bool, open, close string) {
	if entering {
		w.buf.WriteString(open)
	} else {
		w.buf.WriteString(close)
	}
}

// heading emits h1/h2 natively; deeper levels become bold blocks since the
// note app only knows two heading levels.
func (w *walker) heading(level int, entering bool) {
	if level <= 2 {
		h := "h" + strconv.Itoa(level)
		w.tag(entering, "<br>\n<"+h+">", "</"+h+">\n<br>\n")
		return
	}
	w.tag(entering, "<br>\n<div><b>", "</b></div>\n<br>\n")
}

func (w *walker) itemPrefix() string {
	if len(w.lists) == 0 || !w.lists[len(w.lists)-1].ordered {
		return "<div>•\t"
	}
	top := &w.lists[len(w.lists)-1]
	top.counter++
	return "<div>" + strconv.Itoa(top.counter) + ".\t"
}

func (w *walker) writeLines(n ast.Node) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		w.buf.WriteString(html.EscapeString(string(seg.Value(w.source))))
	}
}

func (w *walker) writeText(v []byte, raw bool) {
	if !raw {
		v = util.UnescapePunctuations(v)
		v = util.ResolveNumericReferences(v)
		v = util.ResolveEntityNames(v)
	}
	w.buf.WriteString(html.EscapeString(string(v)))
}
