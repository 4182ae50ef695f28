// Package upload stores registrant files on local disk and serves them back
// by URL. It implements the wizard's upload collaborator; swapping in object
// storage later only means providing another implementation.
package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/foundersclub/formflow/pkg/wizard"
)

var (
	// ErrTooLarge rejects files above the configured limit.
	ErrTooLarge = errors.New("upload: file exceeds size limit")
	// ErrUnsupportedType rejects files outside the accepted MIME types.
	ErrUnsupportedType = errors.New("upload: content type not accepted")
)

// DiskUploader writes files under a base directory and returns URLs below a
// public base path.
type DiskUploader struct {
	dir           string
	baseURL       string
	maxSizeBytes  int64
	acceptedTypes []string
}

// Option configures a DiskUploader.
type Option func(*DiskUploader)

// WithMaxSizeMB caps uploads at the given size. Zero means unlimited.
func WithMaxSizeMB(mb int) Option {
	return func(u *DiskUploader) {
		u.maxSizeBytes = int64(mb) << 20
	}
}

// WithAcceptedTypes restricts uploads to a comma-separated list of MIME
// patterns, e.g. "application/pdf,image/*".
func WithAcceptedTypes(accept string) Option {
	return func(u *DiskUploader) {
		u.acceptedTypes = splitAccept(accept)
	}
}

// New builds a disk uploader rooted at dir; uploaded files are addressed
// below baseURL.
func New(dir, baseURL string, options ...Option) (*DiskUploader, error) {
	if dir == "" {
		return nil, errors.New("upload: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: create directory: %w", err)
	}
	u := &DiskUploader{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(u)
	}
	return u, nil
}

var _ wizard.Uploader = (*DiskUploader)(nil)

// Upload stores the file under a random name, preserving the original
// extension, and returns its public URL.
func (u *DiskUploader) Upload(ctx context.Context, req wizard.UploadRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if req.Body == nil {
		return "", errors.New("upload: body is required")
	}
	if u.maxSizeBytes > 0 && req.Size > u.maxSizeBytes {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, req.Size)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(req.Filename))
	}
	if !u.accepts(contentType) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(req.Filename))
	target := filepath.Join(u.dir, name)

	file, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("upload: create file: %w", err)
	}
	defer file.Close()

	reader := io.Reader(req.Body)
	if u.maxSizeBytes > 0 {
		// Enforce the limit against the actual stream, not just the
		// declared size.
		reader = io.LimitReader(req.Body, u.maxSizeBytes+1)
	}
	written, err := io.Copy(file, reader)
	if err != nil {
		os.Remove(target)
		return "", fmt.Errorf("upload: write file: %w", err)
	}
	if u.maxSizeBytes > 0 && written > u.maxSizeBytes {
		os.Remove(target)
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, written)
	}

	return u.baseURL + "/" + name, nil
}

func (u *DiskUploader) accepts(contentType string) bool {
	if len(u.acceptedTypes) == 0 {
		return true
	}
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}
	for _, pattern := range u.acceptedTypes {
		if matchAccept(pattern, mediaType) {
			return true
		}
	}
	return false
}

func matchAccept(pattern, mediaType string) bool {
	if pattern == "*/*" || pattern == mediaType {
		return true
	}
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		return strings.HasPrefix(mediaType, prefix+"/")
	}
	return false
}

func splitAccept(accept string) []string {
	parts := strings.Split(accept, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(strings.ToLower(part))
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// Dir returns the storage root so callers can serve it over HTTP.
func (u *DiskUploader) Dir() string {
	return u.dir
}

// BaseURL returns the public prefix uploaded files are addressed under.
func (u *DiskUploader) BaseURL() string {
	return u.baseURL
}

// URLPath extracts the stored file name from one of this uploader's URLs.
func (u *DiskUploader) URLPath(url string) (string, bool) {
	if u.baseURL == "" || !strings.HasPrefix(url, u.baseURL+"/") {
		return "", false
	}
	return path.Base(url), true
}
