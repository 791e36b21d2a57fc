package api

import (
	"github.com/starford/chatnotes/internal/noteservice"
	"github.com/starford/chatnotes/internal/notestore"
)

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListItem is a lightweight item in a list response (aliased from the domain layer).
type NoteListItem = noteservice.NoteListItem

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteListItem `json:"notes" validate:"required"`
	Total int            `json:"total" example:"42" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult = notestore.SearchResult

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// SyncResponse reports the result of a triggered sync.
type SyncResponse struct {
	Status      string   `json:"status" example:"ok" validate:"required"`
	Synced      int      `json:"synced" example:"12" validate:"required"`
	Failed      int      `json:"failed" example:"0" validate:"required"`
	Archived    int      `json:"archived" example:"1"`
	Created     int      `json:"created" example:"2"`
	Appended    int      `json:"appended" example:"3"`
	Overwritten int      `json:"overwritten" example:"0"`
	UpToDate    int      `json:"up_to_date" example:"7"`
	Errors      []string `json:"errors,omitempty"`
}
