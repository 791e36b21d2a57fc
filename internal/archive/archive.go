// Package archive reads conversation export files and turns their node
// mappings into ordered conversations.
package archive

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"

	"github.com/starford/chatnotes/internal/models"
)

// UnknownRole is assigned to messages whose author carries no role.
const UnknownRole = "unknown"

const defaultTitle = "Untitled"

var utf8BOM = []byte("\xef\xbb\xbf")

// Node is one mapping entry, kept in document order.
type Node struct {
	Key     string
	Message map[string]any
}

// Record is a raw exported conversation.
type Record struct {
	ID         string
	Title      string
	CreateTime float64
	UpdateTime float64
	Nodes      []Node
}

// UnmarshalJSON decodes a record, walking the mapping object token by token
// so node order matches the file. A missing or malformed mapping yields no
// nodes.
func (r *Record) UnmarshalJSON(data []byte) error {
	var head struct {
		ID         any             `json:"id"`
		Title      any             `json:"title"`
		CreateTime any             `json:"create_time"`
		UpdateTime any             `json:"update_time"`
		Mapping    json.RawMessage `json:"mapping"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	r.ID = models.AsString(head.ID)
	r.Title = defaultTitle
	if t, ok := head.Title.(string); ok {
		r.Title = t
	}
	r.CreateTime = number(head.CreateTime)
	r.UpdateTime = number(head.UpdateTime)
	r.Nodes = walkMapping(head.Mapping)
	return nil
}

func walkMapping(raw json.RawMessage) []Node {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil || tok != json.Delim('{') {
		return nil
	}
	var nodes []Node
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nodes
		}
		key, _ := keyTok.(string)
		var value any
		if err := dec.Decode(&value); err != nil {
			return nodes
		}
		node := models.AsMap(value)
		if node == nil {
			continue
		}
		nodes = append(nodes, Node{Key: key, Message: models.AsMap(node["message"])})
	}
	return nodes
}

// Parse flattens a record into a conversation. Nodes without a message or
// with empty content are dropped; the rest are sorted by create_time with
// ties kept in mapping order.
func Parse(rec *Record) *models.Conversation {
	conv := &models.Conversation{
		ID:         rec.ID,
		Title:      rec.Title,
		CreateTime: rec.CreateTime,
		UpdateTime: rec.UpdateTime,
	}
	for _, n := range rec.Nodes {
		if m, ok := parseMessage(n); ok {
			conv.Messages = append(conv.Messages, m)
		}
	}
	slices.SortStableFunc(conv.Messages, func(a, b models.Message) int {
		return cmp.Compare(a.CreateTime, b.CreateTime)
	})
	return conv
}

func parseMessage(n Node) (models.Message, bool) {
	if len(n.Message) == 0 {
		return models.Message{}, false
	}
	content := models.Content(models.AsMap(n.Message["content"]))
	if content.IsEmpty() {
		return models.Message{}, false
	}
	id := models.AsString(n.Message["id"])
	if id == "" {
		id = n.Key
	}
	author := models.AsMap(n.Message["author"])
	role := models.AsString(author["role"])
	if role == "" {
		role = UnknownRole
	}
	meta := models.AsMap(n.Message["metadata"])
	if meta == nil {
		meta = map[string]any{}
	}
	return models.Message{
		ID:         id,
		Author:     models.NewAuthor(role, models.AsString(author["name"]), models.AsMap(author["metadata"])),
		CreateTime: number(n.Message["create_time"]),
		Content:    content,
		Metadata:   meta,
	}, true
}

// Decode reads one conversation object or a list of them.
func Decode(r io.Reader) ([]*models.Conversation, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("archive: read: %w", err)
	}
	records, err := decodeRecords(trimBOM(data))
	if err != nil {
		return nil, err
	}
	out := make([]*models.Conversation, 0, len(records))
	for i := range records {
		out = append(out, Parse(&records[i]))
	}
	return out, nil
}

func decodeRecords(data []byte) ([]Record, error) {
	if isList(data) {
		var list []Record
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("archive: decode list: %w", err)
		}
		return list, nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("archive: decode: %w", err)
	}
	return []Record{rec}, nil
}

func trimBOM(data []byte) []byte {
	return bytes.TrimPrefix(data, utf8BOM)
}

func isList(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '['
}

func number(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}
