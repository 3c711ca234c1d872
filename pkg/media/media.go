// Package media hands out presigned object storage URLs for chat images and
// receipt photos. Clients upload and download directly against the bucket.
package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var ErrUnsupportedContentType = errors.New("unsupported content type")

type Kind string

const (
	KindChatImage Kind = "chat"
	KindReceipt   Kind = "receipts"
)

var allowedContentTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/heic": "heic",
}

type Config struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Bucket       string
	URLTTL       time.Duration
}

type UploadTicket struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Store struct {
	presign *s3.PresignClient
	bucket  string
	ttl     time.Duration
	now     func() time.Time
}

func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		ttl:     cfg.URLTTL,
		now:     time.Now,
	}, nil
}

// PresignUpload returns a PUT URL for a new object owned by ownerID.
func (s *Store) PresignUpload(ctx context.Context, ownerID string, kind Kind, contentType string) (UploadTicket, error) {
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return UploadTicket{}, fmt.Errorf("%w %q", ErrUnsupportedContentType, contentType)
	}

	key := ObjectKey(kind, ownerID, s.now(), ext)
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return UploadTicket{}, fmt.Errorf("presign put: %w", err)
	}

	return UploadTicket{
		Key:       key,
		URL:       req.URL,
		Method:    req.Method,
		ExpiresAt: s.now().Add(s.ttl),
	}, nil
}

func (s *Store) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

func ObjectKey(kind Kind, ownerID string, at time.Time, ext string) string {
	at = at.UTC()
	return fmt.Sprintf("%s/%s/%04d/%02d/%02d/%s.%s", kind, ownerID, at.Year(), at.Month(), at.Day(), uuid.NewString(), ext)
}

// ParseKind accepts the kinds clients may request uploads for.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindChatImage, KindReceipt:
		return k, true
	}
	return "", false
}

// KindOf returns the kind encoded in an object key.
func KindOf(key string) (Kind, bool) {
	prefix, _, ok := strings.Cut(key, "/")
	if !ok {
		return "", false
	}
	return ParseKind(prefix)
}

// OwnedBy reports whether key was issued to ownerID for the given kind.
func OwnedBy(key string, kind Kind, ownerID string) bool {
	prefix := string(kind) + "/" + ownerID + "/"
	return strings.HasPrefix(key, prefix) && !strings.Contains(key, "..")
}
