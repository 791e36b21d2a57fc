package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddBlockSpacing(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "adjacent divs",
			in:   "<div>a</div>\n<div>b</div>",
			want: "<div>a</div>\n<div><br></div>\n<div>b</div>",
		},
		{
			name: "three blocks",
			in:   "<div>a</div><pre>b</pre><blockquote>c</blockquote>",
			want: "<div>a</div>\n<div><br></div>\n<pre>b</pre>\n<div><br></div>\n<blockquote>c</blockquote>",
		},
		{
			name: "inline neighbours untouched",
			in:   "<b>a</b><i>b</i>",
			want: "<b>a</b><i>b</i>",
		},
		{
			name: "heading then div",
			in:   "<h2>t</h2><div>x</div>",
			want: "<h2>t</h2>\n<div><br></div>\n<div>x</div>",
		},
		{
			name: "empty div after blockquote open",
			in:   "<blockquote><div><br></div>quoted</blockquote>",
			want: "<blockquote>\nquoted</blockquote>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AddBlockSpacing(tt.in))
		})
	}
}

func TestStripFootnotes(t *testing.T) {
	assert.Equal(t, "fact.", StripFootnotes("fact.【12†(source)】"))
	assert.Equal(t, "keep [1]", StripFootnotes("keep [1]"))
}
