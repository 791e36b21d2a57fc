// Package transform holds the text passes applied around markdown rendering:
// math protection, citation substitution, footnote stripping and block spacing.
package transform
