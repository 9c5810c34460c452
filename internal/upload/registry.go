// Package upload parks ingested files until they are attached to a sent
// message. Entries are ephemeral: they expire with the session TTL, the Go
// analog of the original UI's browser-scoped object URLs.
package upload

import (
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/playground-ai/chat-playground/internal/model"
)

// File is one ingested file awaiting attachment.
type File struct {
	ID       string
	Name     string
	MimeType string
	Type     model.FileType
	Size     int64
	Preview  string
	// Content holds the full text for text-classified files, empty otherwise.
	Content string
	// Data holds the raw bytes for locator dereferencing.
	Data []byte
}

// Registry is a TTL-bounded in-memory file store.
type Registry struct {
	cache *gocache.Cache
}

// NewRegistry creates a registry whose entries expire after ttl.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Registry{
		cache: gocache.New(ttl, 10*time.Minute),
	}
}

// Put ingests a file: classifies it, derives preview and text content, and
// returns the stored entry with a generated id.
func (r *Registry) Put(name, mimeType string, data []byte) *File {
	fileType := model.ClassifyFile(name, mimeType)

	f := &File{
		ID:       uuid.New().String(),
		Name:     name,
		MimeType: mimeType,
		Type:     fileType,
		Size:     int64(len(data)),
		Data:     data,
	}
	if fileType == model.FileTypeText {
		f.Content = string(data)
		f.Preview = model.PreviewText(f.Content)
	}

	r.cache.SetDefault(f.ID, f)
	return f
}

// Get returns the file with the given id, if it has not expired.
func (r *Registry) Get(id string) (*File, bool) {
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*File), true
}

// Remove discards a parked file. Unknown ids are a no-op.
func (r *Registry) Remove(id string) {
	r.cache.Delete(id)
}

// Claim fetches the files for the given ids. Missing or expired ids are
// skipped. Entries stay resident until TTL expiry so their locators remain
// dereferenceable for the rest of the session; the attachment metadata
// itself lives in the store once the message is sent.
func (r *Registry) Claim(ids []string) []*File {
	var out []*File
	for _, id := range ids {
		if f, ok := r.Get(id); ok {
			out = append(out, f)
		}
	}
	return out
}
