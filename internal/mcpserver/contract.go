package mcpserver

// NoteFormatContract describes the HTML notes chatnotes writes so LLM
// consumers can read them and locate the sync cursor.
const NoteFormatContract = `# chatnotes Note Format Contract

Each ChatGPT conversation is stored as one note. The body is an HTML
fragment restricted to the subset a notes application renders reliably.

## Structure

` + "```" + `html
<div><h1>Conversation title</h1></div>
<div><br></div>
<div><h2>You</h2></div>
<div><br></div>
<div>Question text</div>
<div><br></div>
<div><h2>ChatGPT</h2></div>
<div><br></div>
<div>Answer with <b>bold</b>, <i>italic</i> and <tt>code</tt></div>
<div><br></div>
<div style="font-size: x-small; color: gray;">{conversation_id}:{last_message_id}</div>
` + "```" + `

## Rules

1. **Allowed tags:** div, b, i, tt, pre, h1, h2, blockquote, img, a, br, and
   table markup. Anything else is escaped as text.
2. **Author headings** are h2: "You" for the user, "ChatGPT" for the
   assistant, "Plugin (name)" for tools.
3. **Headings inside answers** of level 3 and deeper become bold lines.
4. **Lists** are divs prefixed with "•" or "N." followed by a tab.
5. **Code** is an HTML-escaped pre block without highlighting.
6. **Math** (` + "`$...$`, `$$...$$`, `\\(...\\)`, `\\[...\\]`" + `) is kept verbatim.

## Footer cursor

- The last element of every note is a small gray line with the text
  ` + "`{conversation_id}:{last_message_id}`" + `.
- The conversation id is a UUID. The message id is the last message written.
- Incremental sync appends new messages after this cursor and replaces the
  footer. Editing or deleting it forces a full rewrite on the next sync.

## Attachments

- Images embedded as data URLs in the export are stored as note attachments
  named ` + "`image-N.png`" + ` and served at
  ` + "`/notes/{id}/attachments/{name}`" + ` by the HTTP API.

## Folders

- Notes live in one folder, optionally nested one level ("Parent/Child").
- Notes whose conversation disappeared from the export may be moved to the
  "Archive" child folder.
`
