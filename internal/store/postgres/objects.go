package postgres

import (
	"context"

	"github.com/healthcare-ti/form-enfermagem/internal/store"
)

const defaultContentType = "application/octet-stream"

// Upload implements store.ObjectStore.
func (s *Store) Upload(ctx context.Context, bucket, path string, obj store.Object, opts store.UploadOptions) (string, error) {
	if path == "" {
		return "", &store.Error{Op: "upload", Code: store.CodeInvalidInput, Message: "empty object path"}
	}
	contentType := obj.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	query := `
INSERT INTO storage_objects (bucket, path, content_type, cache_control, size_bytes, data)
VALUES ($1, $2, $3, $4, $5, $6)`
	if !opts.NoOverwrite {
		query += `
ON CONFLICT (bucket, path) DO UPDATE SET
    content_type = EXCLUDED.content_type,
    cache_control = EXCLUDED.cache_control,
    size_bytes = EXCLUDED.size_bytes,
    data = EXCLUDED.data,
    created_at = NOW()`
	}

	_, err := s.pool.Exec(ctx, query, bucket, path, contentType, opts.CacheControl, len(obj.Data), obj.Data)
	if err != nil {
		err = translate("upload", err)
		if store.CodeOf(err) == store.CodeUniqueViolation {
			return "", &store.Error{Op: "upload", Code: store.CodeObjectExists, Message: "The resource already exists", Err: err}
		}
		return "", err
	}
	return path, nil
}

// Remove implements store.ObjectStore.
func (s *Store) Remove(ctx context.Context, bucket string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx, "DELETE FROM storage_objects WHERE bucket = $1 AND path = ANY($2)", bucket, paths)
	return translate("remove", err)
}
