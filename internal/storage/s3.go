package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/affiliateboard/backend/internal/config"
)

const logoPrefix = "logos/"

// ErrForeignURL is returned when a URL does not point into this store
var ErrForeignURL = errors.New("url does not belong to this bucket")

// objectAPI is the subset of the S3 client the uploader needs
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// S3Uploader handles logo uploads to an S3-compatible bucket (AWS, R2, MinIO)
type S3Uploader struct {
	client  objectAPI
	bucket  string
	baseURL string
	now     func() time.Time
}

// UploadResult contains the result of an upload
type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Bucket      string `json:"bucket"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// NewS3Uploader creates an uploader from cfg. A custom endpoint switches to
// path-style addressing; static keys are used when both are set.
func NewS3Uploader(ctx context.Context, cfg config.StorageConfig) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("S3_BUCKET is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = cfg.Endpoint
	}
	return newS3Uploader(client, cfg.Bucket, baseURL), nil
}

func newS3Uploader(client objectAPI, bucket, baseURL string) *S3Uploader {
	return &S3Uploader{
		client:  client,
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}
}

// UploadLogo validates the image and stores it under logos/<uuid><ext>
func (u *S3Uploader) UploadLogo(ctx context.Context, data []byte, originalFilename string) (*UploadResult, error) {
	contentType, ext, err := DetectImage(data)
	if err != nil {
		return nil, err
	}

	key := logoPrefix + uuid.New().String() + ext
	putObjectInput := &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),

		// Keys are unique per upload, so objects never change
		CacheControl: aws.String("public, max-age=31536000, immutable"),

		Metadata: map[string]string{
			"original-filename": originalFilename,
			"upload-timestamp":  u.now().UTC().Format(time.RFC3339),
			"file-type":         "logo",
		},
	}

	if _, err := u.client.PutObject(ctx, putObjectInput); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &UploadResult{
		Key:         key,
		URL:         u.PublicURL(key),
		Bucket:      u.bucket,
		ContentType: contentType,
		Size:        int64(len(data)),
	}, nil
}

// PublicURL returns {base}/{bucket}/{key}
func (u *S3Uploader) PublicURL(key string) string {
	return fmt.Sprintf("%s/%s/%s", u.baseURL, u.bucket, key)
}

// KeyFromURL extracts the object key from a URL produced by PublicURL
func (u *S3Uploader) KeyFromURL(publicURL string) (string, error) {
	prefix := fmt.Sprintf("%s/%s/", u.baseURL, u.bucket)
	if !strings.HasPrefix(publicURL, prefix) {
		return "", ErrForeignURL
	}
	key := strings.TrimPrefix(publicURL, prefix)
	if !strings.HasPrefix(key, logoPrefix) || len(key) == len(logoPrefix) {
		return "", ErrForeignURL
	}
	return key, nil
}

// DeleteByURL removes the object behind a public logo URL. URLs that point
// elsewhere (an external logo) are left alone.
func (u *S3Uploader) DeleteByURL(ctx context.Context, publicURL string) error {
	key, err := u.KeyFromURL(publicURL)
	if err != nil {
		return err
	}
	return u.DeleteFile(ctx, key)
}

// DeleteFile deletes a file from S3
func (u *S3Uploader) DeleteFile(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}

	return nil
}

// CheckBucketAccess verifies that we can access the S3 bucket
func (u *S3Uploader) CheckBucketAccess(ctx context.Context) error {
	_, err := u.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(u.bucket),
	})
	if err != nil {
		return fmt.Errorf("cannot access S3 bucket %s: %w", u.bucket, err)
	}

	return nil
}
