package syncer

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/starford/chatnotes/internal/models"
	"github.com/starford/chatnotes/internal/notestore"
)

var (
	unsafeNameRe = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	separatorRe  = regexp.MustCompile(`[-\s]+`)
)

// CopyName returns the file name used for a note copy: the title reduced
// to word characters joined by underscores, or the conversation id.
func CopyName(conv *models.Conversation) string {
	name := unsafeNameRe.ReplaceAllString(conv.Title, "")
	name = strings.Trim(separatorRe.ReplaceAllString(name, "_"), "_")
	if name == "" {
		name = conv.ID
	}
	return name + ".html"
}

func writeCopy(dir string, conv *models.Conversation, body string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir copy dir: %w", err)
	}
	p := filepath.Join(dir, CopyName(conv))
	if err := os.WriteFile(p, []byte(notestore.WrapDocument(body)), 0o644); err != nil {
		return fmt.Errorf("write copy: %w", err)
	}
	return nil
}
