package zotero

import (
	"os"
	"path/filepath"
	"strings"
)

// Storage resolves item attachments to files under the Zotero storage
// directory (layout: <storage>/<attachmentKey>/<filename>).
type Storage struct {
	dir string
}

// NewStorage creates a locator rooted at the given storage directory.
func NewStorage(dir string) *Storage {
	return &Storage{dir: dir}
}

// AttachmentPath resolves an attachment to an absolute path, or "" when
// the attachment has no key/path or the file does not exist on disk.
func (s *Storage) AttachmentPath(att Attachment) string {
	if att.Key == "" || att.Path == "" {
		return ""
	}
	full := filepath.Join(s.dir, att.Key, att.Path)
	if _, err := os.Stat(full); err != nil {
		return ""
	}
	return full
}

// PDFPath returns the path of the item's first resolvable PDF attachment,
// or "" when the item has none on disk.
func (s *Storage) PDFPath(item Item) string {
	for _, att := range item.Attachments {
		if att.ContentType != "application/pdf" && !strings.HasSuffix(strings.ToLower(att.Path), ".pdf") {
			continue
		}
		if path := s.AttachmentPath(att); path != "" {
			return path
		}
	}
	return ""
}
