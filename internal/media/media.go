package media

import (
	"context"
	"errors"
)

// ErrUploadFailed indicates the media host rejected or failed an upload. It is
// surfaced before any record write, so the enclosing operation leaves no trace.
var ErrUploadFailed = errors.New("media upload failed")

// Asset identifies an uploaded file on the media host.
type Asset struct {
	PublicID string
	URL      string
}

// Uploader is the contract the application has with the media host. Source is
// a data URI, remote URL or local path; folder groups assets on the host.
type Uploader interface {
	Upload(ctx context.Context, source, folder string) (Asset, error)
	Destroy(ctx context.Context, publicID string) error
}
