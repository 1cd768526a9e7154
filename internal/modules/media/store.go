package media

import (
	"context"
	"io"
)

// Store persists uploaded product images and returns a stable public URL to
// reference from the product row. An upload failure must abort the caller's
// whole operation so no row ever points at a missing image.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (url string, err error)
}
