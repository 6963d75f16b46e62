package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
)

const (
	avatarPresignTTL = 15 * time.Minute
	avatarPrefix     = "avatars"
	sniffLen         = 512
)

var (
	ErrAvatarTooLarge      = newError(ErrValidation, "avatar exceeds the size limit")
	ErrAvatarType          = newError(ErrValidation, "avatar must be a JPEG or PNG image")
	ErrAvatarForeignKey    = newError(ErrForbidden, "avatar belongs to another user")
	ErrStorageDisabled     = newError(ErrValidation, "avatar storage is not enabled")
	allowedAvatarMimeTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
	}
)

// AvatarStorage persists profile pictures. Keys are namespaced per user so a key can
// only be removed by its owner.
type AvatarStorage interface {
	PutAvatar(ctx context.Context, userID uuid.UUID, body io.Reader, size int64) (string, error)
	RemoveAvatar(ctx context.Context, userID uuid.UUID, key string) error
	AvatarURL(ctx context.Context, key string) (string, error)
}

// DisabledAvatarStorage is used when no object store is configured.
type DisabledAvatarStorage struct{}

func (DisabledAvatarStorage) PutAvatar(context.Context, uuid.UUID, io.Reader, int64) (string, error) {
	return "", ErrStorageDisabled
}

func (DisabledAvatarStorage) RemoveAvatar(context.Context, uuid.UUID, string) error {
	return nil
}

func (DisabledAvatarStorage) AvatarURL(context.Context, string) (string, error) {
	return "", nil
}

type MinIOAvatarStorage struct {
	client   *minio.Client
	bucket   string
	maxBytes int64
	initOnce sync.Once
	initErr  error
}

// NewMinIOAvatarStorage builds the client without contacting the server; the bucket
// is created on first use.
func NewMinIOAvatarStorage(endpoint, accessKey, secretKey, bucket string, useSSL bool, maxBytes int64) (*MinIOAvatarStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinIOAvatarStorage{client: client, bucket: bucket, maxBytes: maxBytes}, nil
}

func (s *MinIOAvatarStorage) Client() *minio.Client { return s.client }
func (s *MinIOAvatarStorage) Bucket() string        { return s.bucket }

func (s *MinIOAvatarStorage) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = fmt.Errorf("check bucket %s: %w", s.bucket, err)
			return
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
				s.initErr = fmt.Errorf("create bucket %s: %w", s.bucket, err)
			}
		}
	})
	return s.initErr
}

// PutAvatar trusts the sniffed bytes, never the client supplied content type.
func (s *MinIOAvatarStorage) PutAvatar(ctx context.Context, userID uuid.UUID, body io.Reader, size int64) (string, error) {
	if size <= 0 || (s.maxBytes > 0 && size > s.maxBytes) {
		observability.RecordAvatarStorageEvent(ctx, "put", "too_large")
		return "", ErrAvatarTooLarge
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(body, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		observability.RecordAvatarStorageEvent(ctx, "put", "error")
		return "", fmt.Errorf("read avatar: %w", err)
	}
	head = head[:n]
	mimeType := strings.ToLower(http.DetectContentType(head))
	ext, ok := allowedAvatarMimeTypes[mimeType]
	if !ok {
		observability.RecordAvatarStorageEvent(ctx, "put", "rejected_type")
		return "", ErrAvatarType
	}
	if err := s.ensureBucket(ctx); err != nil {
		observability.RecordAvatarStorageEvent(ctx, "put", "error")
		return "", err
	}

	key := fmt.Sprintf("%s/%s/%s%s", avatarPrefix, userID, uuid.NewString(), ext)
	_, err = s.client.PutObject(ctx, s.bucket, key, io.MultiReader(bytes.NewReader(head), body), size, minio.PutObjectOptions{
		ContentType:  mimeType,
		UserMetadata: map[string]string{"User-Id": userID.String()},
	})
	if err != nil {
		observability.RecordAvatarStorageEvent(ctx, "put", "error")
		return "", fmt.Errorf("upload avatar: %w", err)
	}
	observability.RecordAvatarStorageEvent(ctx, "put", "success")
	return key, nil
}

func (s *MinIOAvatarStorage) RemoveAvatar(ctx context.Context, userID uuid.UUID, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	if err := checkAvatarOwner(userID, key); err != nil {
		observability.RecordAvatarStorageEvent(ctx, "remove", "forbidden")
		return err
	}
	if err := s.ensureBucket(ctx); err != nil {
		observability.RecordAvatarStorageEvent(ctx, "remove", "error")
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		observability.RecordAvatarStorageEvent(ctx, "remove", "error")
		return fmt.Errorf("remove avatar: %w", err)
	}
	observability.RecordAvatarStorageEvent(ctx, "remove", "success")
	return nil
}

func (s *MinIOAvatarStorage) AvatarURL(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", nil
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, avatarPresignTTL, url.Values{})
	if err != nil {
		observability.RecordAvatarStorageEvent(ctx, "presign", "error")
		return "", fmt.Errorf("presign avatar: %w", err)
	}
	return u.String(), nil
}

func checkAvatarOwner(userID uuid.UUID, key string) error {
	if strings.Contains(key, "..") || !strings.HasPrefix(key, fmt.Sprintf("%s/%s/", avatarPrefix, userID)) {
		return ErrAvatarForeignKey
	}
	return nil
}
