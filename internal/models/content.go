package models

// Content is a message payload keyed by its content_type discriminator.
type Content map[string]any

// Type returns the content_type discriminator, "text" when absent.
func (c Content) Type() string {
	if t, ok := c["content_type"].(string); ok && t != "" {
		return t
	}
	return "text"
}

// String returns the string field key, or "".
func (c Content) String(key string) string {
	return AsString(c[key])
}

// Parts returns the "parts" list.
func (c Content) Parts() []any {
	p, _ := c["parts"].([]any)
	return p
}

// IsEmpty reports whether the payload is absent or has no fields.
func (c Content) IsEmpty() bool {
	return len(c) == 0
}

// AsString returns v when it is a string, "" otherwise.
func AsString(v any) string {
	s, _ := v.(string)
	return s
}

// AsMap returns v when it is an object, nil otherwise.
func AsMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// AsSlice returns v when it is a list, nil otherwise.
func AsSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// Lookup walks nested objects along keys.
func Lookup(m map[string]any, keys ...string) any {
	var cur any = m
	for _, k := range keys {
		obj := AsMap(cur)
		if obj == nil {
			return nil
		}
		cur = obj[k]
	}
	return cur
}
