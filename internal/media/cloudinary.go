package media

import (
	"context"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// CloudinaryUploader implements Uploader on top of Cloudinary
type CloudinaryUploader struct {
	client *cloudinary.Cloudinary
}

// NewCloudinaryUploader creates a CloudinaryUploader from a cloudinary:// URL
func NewCloudinaryUploader(cloudinaryURL string) (*CloudinaryUploader, error) {
	if cloudinaryURL == "" {
		return nil, fmt.Errorf("cloudinary URL not provided")
	}
	client, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("error initializing cloudinary client: %w", err)
	}
	return &CloudinaryUploader{client: client}, nil
}

// Upload sends the source to Cloudinary and returns the stored asset
func (u *CloudinaryUploader) Upload(ctx context.Context, source, folder string) (Asset, error) {
	res, err := u.client.Upload.Upload(ctx, source, uploader.UploadParams{Folder: folder})
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if res.Error.Message != "" {
		return Asset{}, fmt.Errorf("%w: %s", ErrUploadFailed, res.Error.Message)
	}
	return Asset{PublicID: res.PublicID, URL: res.SecureURL}, nil
}

// Destroy removes a previously uploaded asset from Cloudinary
func (u *CloudinaryUploader) Destroy(ctx context.Context, publicID string) error {
	_, err := u.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	return err
}
