package services

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/arzan03/TourBooking/internal/apperr"
	"github.com/arzan03/TourBooking/internal/models"
	"github.com/google/uuid"
)

const photoURLExpiry = 10 * time.Minute

// PhotoStore is the object storage holding user photos.
type PhotoStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (*url.URL, error)
	Remove(ctx context.Context, key string) error
}

type PhotoService struct {
	store  PhotoStore
	logger *log.Logger
}

func NewPhotoService(store PhotoStore, logger *log.Logger) *PhotoService {
	return &PhotoService{store: store, logger: logger}
}

// Upload stores an uploaded image under a fresh key for userID.
func (s *PhotoService) Upload(ctx context.Context, userID string, fh *multipart.FileHeader) (string, error) {
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", apperr.BadRequest("Not an image! Please upload only images.")
	}

	file, err := fh.Open()
	if err != nil {
		return "", apperr.BadRequest("failed to open file")
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext == "" {
		ext = ".jpeg"
	}
	key := fmt.Sprintf("user-%s-%s%s", userID, uuid.NewString(), ext)
	if err := s.store.Put(ctx, key, file, fh.Size, contentType); err != nil {
		return "", apperr.Internal("failed to upload photo to storage", err)
	}
	return key, nil
}

// URL returns a short-lived download link for a stored photo.
func (s *PhotoService) URL(ctx context.Context, key string) (string, error) {
	if !IsStoredPhoto(key) {
		return "", apperr.NotFound("No photo with that name")
	}
	u, err := s.store.PresignedURL(ctx, key, photoURLExpiry)
	if err != nil {
		return "", apperr.Internal("failed to generate download link", err)
	}
	return u.String(), nil
}

// Discard removes a replaced photo in the background. The default photo is
// never removed.
func (s *PhotoService) Discard(key string) {
	if !IsStoredPhoto(key) {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.store.Remove(ctx, key); err != nil {
			s.logger.Printf("failed to remove photo %s: %v", key, err)
		}
	}()
}

// IsStoredPhoto reports whether key names an uploaded photo rather than
// the bundled default.
func IsStoredPhoto(key string) bool {
	return key != "" && key != models.DefaultPhoto && strings.HasPrefix(key, "user-") && !strings.ContainsAny(key, "/\\")
}
