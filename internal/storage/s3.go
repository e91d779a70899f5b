// Package storage keeps photo proof uploads in an S3-compatible bucket.
// Works against AWS, MinIO, or any path-style endpoint.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ErrNotConfigured is returned when proof storage has no credentials.
var ErrNotConfigured = errors.New("photo storage not configured")

// Accepted content types for proof photos.
var allowedContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ErrUnsupportedType is returned for uploads that are not jpeg, png, or webp.
var ErrUnsupportedType = errors.New("unsupported image type")

const maxProofBytes = 10 << 20

// ErrTooLarge is returned when an upload exceeds the 10 MiB limit.
var ErrTooLarge = errors.New("proof photo too large")

type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Config holds S3-compatible storage configuration.
type Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// PublicBaseURL is prepended to object keys to form the stored proof
	// URL, e.g. a CDN or the endpoint's public address.
	PublicBaseURL string
}

// ProofStore uploads and deletes proof photos.
type ProofStore struct {
	client s3Client
	cfg    Config
}

func NewProofStore(cfg Config) *ProofStore {
	ps := &ProofStore{cfg: cfg}
	if cfg.Bucket != "" && cfg.AccessKey != "" && cfg.SecretKey != "" {
		ps.client = newS3Client(cfg)
	}
	return ps
}

func newS3Client(cfg Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Configured reports whether uploads can be accepted.
func (ps *ProofStore) Configured() bool {
	return ps.client != nil
}

// Upload stores a proof photo under the household's prefix and returns its
// public URL. The reader is capped at the size limit.
func (ps *ProofStore) Upload(ctx context.Context, householdID, taskID int64, contentType string, body io.Reader) (string, error) {
	if ps.client == nil {
		return "", ErrNotConfigured
	}
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}

	data, err := io.ReadAll(io.LimitReader(body, maxProofBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxProofBytes {
		return "", ErrTooLarge
	}

	key := fmt.Sprintf("%d/proofs/%d/%s-%s%s",
		householdID, taskID, time.Now().UTC().Format("20060102T150405Z"), uuid.NewString()[:8], ext,
	)

	_, err = ps.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(ps.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put proof object: %w", err)
	}

	return fmt.Sprintf("%s/%s", ps.cfg.PublicBaseURL, key), nil
}

// Delete removes a previously uploaded proof by its object key.
func (ps *ProofStore) Delete(ctx context.Context, key string) error {
	if ps.client == nil {
		return ErrNotConfigured
	}
	_, err := ps.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(ps.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete proof object: %w", err)
	}
	return nil
}
