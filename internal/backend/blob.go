package backend

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// s3Client is an interface for testability.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Config struct {
	Endpoint      string
	Bucket        string
	Region        string
	AccessKey     string
	SecretKey     string
	PublicBaseURL string
}

// S3Blobs stores blobs in an S3-compatible bucket.
type S3Blobs struct {
	client  s3Client
	bucket  string
	baseURL string
}

func NewS3Blobs(cfg S3Config) *S3Blobs {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return newS3Blobs(s3.New(opts), cfg)
}

func newS3Blobs(client s3Client, cfg S3Config) *S3Blobs {
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		if cfg.Endpoint != "" {
			base = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return &S3Blobs{client: client, bucket: cfg.Bucket, baseURL: base}
}

// Upload writes r to key and returns the object's public URL. size may be
// zero when unknown.
func (b *S3Blobs) Upload(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   r,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if size > 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := b.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return b.baseURL + "/" + key, nil
}

// ProfileImagePath is where a user's profile photo is stored.
func ProfileImagePath(userID int64) string {
	return fmt.Sprintf("profile_images/%d.jpg", userID)
}

// UploadPath returns a unique key for a user's upload, keeping the
// extension of filename.
func UploadPath(userID int64, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("uploads/%d/%s%s", userID, uuid.NewString(), ext)
}

// DisabledBlobs rejects every upload.
type DisabledBlobs struct{}

func (DisabledBlobs) Upload(ctx context.Context, key, contentType string, r io.Reader, size int64) (string, error) {
	return "", ErrBlobsDisabled
}
