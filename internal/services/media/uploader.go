// Package media stores profile pictures on Cloudinary, or on local disk when
// no Cloudinary account is configured.
package media

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"

	"github.com/Jaguar1-alt/Gigconnect/internal/apperr"
)

const MaxImageSize = 5 << 20

var allowedExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}

type Uploader interface {
	// Upload stores the image and returns its public URL.
	Upload(ctx context.Context, owner uuid.UUID, fh *multipart.FileHeader) (string, error)
}

// Validate checks size and extension before anything is stored.
func Validate(fh *multipart.FileHeader) error {
	if fh == nil || fh.Size <= 0 {
		return apperr.Validation("No file uploaded.")
	}
	if fh.Size > MaxImageSize {
		return apperr.Validation("File is too large (max 5MB).")
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !allowedExt[ext] {
		return apperr.Validation("Unsupported image format.")
	}
	return nil
}

type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryUploader(cloudName, apiKey, apiSecret, folder string) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, err
	}
	return &CloudinaryUploader{cld: cld, folder: folder}, nil
}

func (u *CloudinaryUploader) Upload(ctx context.Context, owner uuid.UUID, fh *multipart.FileHeader) (string, error) {
	if err := Validate(fh); err != nil {
		return "", err
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	resp, err := u.cld.Upload.Upload(ctx, f, uploader.UploadParams{
		Folder:   u.folder,
		PublicID: fmt.Sprintf("profile_%s_%d", owner, time.Now().UnixNano()),
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// LocalUploader writes into Dir/profiles; Dir is served under /uploads.
type LocalUploader struct {
	Dir     string
	BaseURL string
}

func (u *LocalUploader) Upload(ctx context.Context, owner uuid.UUID, fh *multipart.FileHeader) (string, error) {
	if err := Validate(fh); err != nil {
		return "", err
	}
	dir := filepath.Join(u.Dir, "profiles")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	filename := fmt.Sprintf("profile_%s_%d%s", owner, time.Now().UnixNano(), ext)

	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	dst, err := os.Create(filepath.Join(dir, filename))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}

	publicPath := "/uploads/profiles/" + filename
	if u.BaseURL != "" {
		return strings.TrimRight(u.BaseURL, "/") + publicPath, nil
	}
	return publicPath, nil
}
