package parser

import (
	"testing"

	"github.com/starford/chatnotes/internal/marker"
)

const convID = "6f1d2a3b-4c5d-4e6f-8a9b-0c1d2e3f4a5b"

func TestParse_TitleSectionsCursor(t *testing.T) {
	body := "<div><h1>Trip &amp; Plans</h1></div><div><br></div>" +
		"<div><h2>You</h2></div><div><br></div><div>hello</div><div><br></div>" +
		"<div><h2>ChatGPT</h2></div><div><br></div><div><b>world</b></div><div><br></div>" +
		marker.Format(convID, "m2")
	r := Parse(body)
	if r.Title != "Trip & Plans" {
		t.Errorf("title = %q, want %q", r.Title, "Trip & Plans")
	}
	if len(r.Sections) != 2 || r.Sections[0] != "You" || r.Sections[1] != "ChatGPT" {
		t.Errorf("sections = %v", r.Sections)
	}
	if !r.HasCursor || r.Cursor.LastMessageID != "m2" {
		t.Errorf("cursor = %+v, ok = %v", r.Cursor, r.HasCursor)
	}
}

func TestParse_PlainTextExcludesFooter(t *testing.T) {
	body := "<div><h1>T</h1></div><div>a &lt; b</div>" + marker.Format(convID, "m1")
	r := Parse(body)
	if r.Text != "T\na < b" {
		t.Errorf("text = %q", r.Text)
	}
}

func TestParse_NoCursor(t *testing.T) {
	r := Parse("<div>plain</div>")
	if r.HasCursor {
		t.Errorf("expected no cursor")
	}
	if r.Title != "" {
		t.Errorf("title = %q, want empty", r.Title)
	}
}

func TestExtractLinks_Basic(t *testing.T) {
	body := `<a href="https://a.dev">A</a> and <a href="https://b.dev?x=1&amp;y=2">B</a> <a href="https://a.dev">again</a>`
	links := extractLinks(body)
	if len(links) != 2 {
		t.Fatalf("len(links) = %d, want 2", len(links))
	}
	if links[0] != "https://a.dev" || links[1] != "https://b.dev?x=1&y=2" {
		t.Errorf("links = %v", links)
	}
}
