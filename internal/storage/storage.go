package storage

import "context"

// Uploader stores an attachment and returns the URL clients fetch it
// from. Implementations must respect ctx cancellation.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, data []byte) (string, error)
}
