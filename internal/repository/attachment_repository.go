package repository

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-core/internal/domain"
)

// AttachmentRepository stores attachment metadata. The retention sweep
// deletes rows past the cutoff and returns the storage keys so the
// external blob store can be purged.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.AttachmentReference) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error)
}

type attachmentRepository struct {
	q Querier
}

// NewAttachmentRepository builds repository.
func NewAttachmentRepository(q Querier) AttachmentRepository {
	return &attachmentRepository{q: q}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.AttachmentReference) error {
	const query = `
        INSERT INTO attachments (comment_id, ticket_id, storage_key, file_name, mime_type, size_bytes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		attachment.CommentID,
		attachment.TicketID,
		attachment.StorageKey,
		attachment.FileName,
		attachment.MimeType,
		attachment.SizeBytes,
	).Scan(&attachment.ID, &attachment.CreatedAt)
}

func (r *attachmentRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) ([]string, error) {
	const query = `DELETE FROM attachments WHERE created_at < $1 RETURNING storage_key`
	rows, err := r.q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
