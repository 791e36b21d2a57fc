package archive

import (
	"cmp"
	"fmt"
	"io"
	"slices"

	"github.com/starford/chatnotes/internal/models"
)

// Entry locates one conversation inside the discovered sources.
type Entry struct {
	Source       string
	Position     int // -1 when the source holds a single object
	UpdateTime   float64
	Conversation *models.Conversation
}

// Failure records a source that could not be read or decoded.
type Failure struct {
	Source string
	Err    error
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Source, f.Err)
}

func (f Failure) Unwrap() error { return f.Err }

// BuildIndex decodes every source once and returns its conversations with
// the most recently updated first. Unreadable sources become failures and
// do not stop the scan.
func BuildIndex(sources []Source) ([]Entry, []Failure) {
	var (
		entries  []Entry
		failures []Failure
	)
	for _, src := range sources {
		convs, single, err := load(src)
		if err != nil {
			failures = append(failures, Failure{Source: src.Name, Err: err})
			continue
		}
		for i, c := range convs {
			pos := i
			if single {
				pos = -1
			}
			entries = append(entries, Entry{
				Source:       src.Name,
				Position:     pos,
				UpdateTime:   c.UpdateTime,
				Conversation: c,
			})
		}
	}
	slices.SortStableFunc(entries, func(a, b Entry) int {
		return cmp.Compare(b.UpdateTime, a.UpdateTime)
	})
	return entries, failures
}

func load(src Source) (convs []*models.Conversation, single bool, err error) {
	rc, err := src.Open()
	if err != nil {
		return nil, false, fmt.Errorf("archive: open: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, false, fmt.Errorf("archive: read: %w", err)
	}
	data = trimBOM(data)
	records, err := decodeRecords(data)
	if err != nil {
		return nil, false, err
	}
	convs = make([]*models.Conversation, 0, len(records))
	for i := range records {
		convs = append(convs, Parse(&records[i]))
	}
	return convs, !isList(data), nil
}
