package domain

import "time"

// AttachmentReference stores metadata for blobs attached to comments.
// The blob storage itself is external; retention sweeps delete the
// reference rows and emit the storage keys for the external store.
type AttachmentReference struct {
	ID         string
	CommentID  string
	TicketID   string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
