package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// ObjectUploader is the subset of the s3 manager uploader we use.
type ObjectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Uploader publishes finished booklets to S3.
type Uploader struct {
	up     ObjectUploader
	bucket string
	prefix string
}

// BookletMeta is stored as object metadata next to the booklet. S3 user
// metadata is US-ASCII, so the source name is path-escaped.
type BookletMeta struct {
	SourceName string
	PageCount  int
	Padded     int
}

// NewUploader creates an uploader using the default AWS config chain.
func NewUploader(ctx context.Context, bucket, prefix string) (*Uploader, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewUploaderWith(manager.NewUploader(s3.NewFromConfig(cfg)), bucket, prefix), nil
}

// NewUploaderWith wraps an existing uploader.
func NewUploaderWith(up ObjectUploader, bucket, prefix string) *Uploader {
	return &Uploader{up: up, bucket: bucket, prefix: prefix}
}

// Key returns the object key for a booklet file name.
func (u *Uploader) Key(name string) string {
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

// Upload streams localPath to S3 and returns the s3:// reference.
func (u *Uploader) Upload(ctx context.Context, localPath string, meta BookletMeta) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return u.UploadReader(ctx, f, path.Base(localPath), meta)
}

// UploadReader uploads body under Key(name).
func (u *Uploader) UploadReader(ctx context.Context, body io.Reader, name string, meta BookletMeta) (string, error) {
	key := u.Key(name)
	out, err := u.up.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String("application/pdf"),
		Metadata: map[string]string{
			"name":         url.PathEscape(meta.SourceName),
			"page-count":   strconv.Itoa(meta.PageCount),
			"padded-count": strconv.Itoa(meta.Padded),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	ref := fmt.Sprintf("s3://%s/%s", u.bucket, key)
	log.Info().Str("bucket", u.bucket).Str("key", key).Str("location", out.Location).Msg("uploaded booklet")
	return ref, nil
}
