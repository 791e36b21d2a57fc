package markdown

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToHTMLTagMapping(t *testing.T) {
	c := New()
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"paragraph", "hello", []string{"<div>hello</div>"}},
		{"bold", "**world**", []string{"<b>world</b>"}},
		{"italic", "*soft*", []string{"<i>soft</i>"}},
		{"inline code", "use `go test`", []string{"<tt>go test</tt>"}},
		{"link", "[site](https://example.com)", []string{`<a href="https://example.com">site</a>`}},
		{"image", "![alt](https://example.com/a.png)", []string{`<img src="https://example.com/a.png" style="max-width: 100%; max-height: 100%;">`}},
		{"heading", "# Title", []string{"<br>\n<h1>Title</h1>\n<br>"}},
		{"deep heading", "### Small", []string{"<div><b>Small</b></div>"}},
		{"quote", "> quoted", []string{"<blockquote>", "quoted", "</blockquote>"}},
		{"table", "| a | b |\n|---|---|\n| 1 | 2 |", []string{"<table>", "<th>a</th>", "<td>2</td>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.ToHTML(tt.in)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
		})
	}
}

func TestToHTMLCodeBlocksAreEscaped(t *testing.T) {
	got := New().ToHTML("```go\nif a < b && c {}\n```")
	assert.Contains(t, got, "<pre>if a &lt; b &amp;&amp; c {}\n</pre>")
	assert.NotContains(t, got, "<code")
}

func TestToHTMLOrderedListNumbering(t *testing.T) {
	got := New().ToHTML("1. a\n2. b")
	assert.Contains(t, got, "<div>1.\ta</div>")
	assert.Contains(t, got, "<div>2.\tb</div>")
	assert.NotContains(t, got, "<ol")
	assert.NotContains(t, got, "<li")
}

func TestToHTMLRenumbersFromOne(t *testing.T) {
	got := New().ToHTML("3. a\n7. b")
	assert.Contains(t, got, "1.\ta")
	assert.Contains(t, got, "2.\tb")
}

func TestToHTMLNestedLists(t *testing.T) {
	got := New().ToHTML("1. first\n   - inner\n   - inner2\n2. second")
	assert.Contains(t, got, "1.\tfirst")
	assert.Contains(t, got, "•\tinner")
	assert.Contains(t, got, "•\tinner2")
	assert.Contains(t, got, "2.\tsecond")
}

func TestToHTMLBulletList(t *testing.T) {
	got := New().ToHTML("- x\n- y")
	assert.Equal(t, 2, strings.Count(got, "•\t"))
}

func TestToHTMLProtectsMath(t *testing.T) {
	got := New().ToHTML("energy $a_b * c_d$ and $$x_1 * x_2$$")
	assert.Contains(t, got, "$a_b * c_d$")
	assert.Contains(t, got, "$$x_1 * x_2$$")
	assert.NotContains(t, got, "<i>")
}

func TestToHTMLEscapesRawHTML(t *testing.T) {
	got := New().ToHTML("before <script>alert(1)</script> after")
	assert.NotContains(t, got, "<script>")
	assert.Contains(t, got, "&lt;script&gt;")
}

func TestToHTMLSpacesBlocks(t *testing.T) {
	got := New().ToHTML("one\n\ntwo")
	assert.Contains(t, got, "<div>one</div>\n<div><br></div>\n<div>two</div>")
}
