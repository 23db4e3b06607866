package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prperemyshlev/videotube-service/internal/config"
)

const keyPrefix = "media/"

// ErrForeignURL is returned by Delete for URLs that do not point into the configured bucket
var ErrForeignURL = errors.New("url does not belong to the media bucket")

// Uploader stores local files on the media host and returns their public URL
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
	Delete(ctx context.Context, url string) error
}

// S3Uploader uploads media to an S3-compatible bucket
type S3Uploader struct {
	client *s3.Client
	cfg    config.S3Config
	logger *zap.Logger
}

// NewS3Uploader creates an uploader for the configured bucket. Static credentials are used
// when both keys are set; otherwise the default AWS credential chain applies.
func NewS3Uploader(ctx context.Context, cfg config.S3Config, logger *zap.Logger) (*S3Uploader, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Uploader{client: client, cfg: cfg, logger: logger}, nil
}

// Upload puts the file under a fresh random key and returns its public URL.
// The local file is left in place; callers own its cleanup.
func (u *S3Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	if localPath == "" {
		return "", errors.New("no file to upload")
	}

	file, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", localPath, err)
	}

	key := objectKey(localPath)
	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          file,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(contentType(localPath)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	url := u.cfg.ObjectURL(key)
	u.logger.Debug("media uploaded", zap.String("key", key), zap.Int64("size", info.Size()))

	return url, nil
}

// Delete removes the object behind a URL previously returned by Upload
func (u *S3Uploader) Delete(ctx context.Context, url string) error {
	key, ok := KeyFromURL(u.cfg, url)
	if !ok {
		return fmt.Errorf("%w: %s", ErrForeignURL, url)
	}

	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}

	return nil
}

// KeyFromURL extracts the object key from a public URL built by cfg.ObjectURL
func KeyFromURL(cfg config.S3Config, url string) (string, bool) {
	key, ok := strings.CutPrefix(url, cfg.ObjectURL(""))
	if !ok || !strings.HasPrefix(key, keyPrefix) || len(key) == len(keyPrefix) {
		return "", false
	}
	return key, true
}

func objectKey(localPath string) string {
	return keyPrefix + uuid.New().String() + strings.ToLower(filepath.Ext(localPath))
}

func contentType(localPath string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(localPath))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
