// Package source turns a document reference into a local PDF path.
//
// Supported references:
//   - file://path or absolute/relative filesystem paths
//   - http(s):// URLs (downloaded to temp)
//   - s3://bucket/key (downloaded to temp via AWS SDK v2)
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// TempPrefix prefixes every temp file this package creates.
const TempPrefix = "booklet-"

// ErrUnsupportedRef is returned for references with an unknown scheme.
var ErrUnsupportedRef = errors.New("unsupported source reference")

// Local is a resolved document on the local filesystem.
type Local struct {
	Path string // readable path
	Name string // base name of the original reference, used to name output
	temp bool
}

// Cleanup removes the file if it was downloaded.
func (l Local) Cleanup() {
	if l.temp {
		_ = os.Remove(l.Path)
	}
}

// Resolver downloads remote references.
type Resolver struct {
	HTTP *http.Client
	// S3 builds the client used for s3:// refs; defaults to the AWS default chain.
	S3 func(ctx context.Context) (*s3.Client, error)
}

// NewResolver returns a Resolver using the default HTTP client and AWS config chain.
func NewResolver() *Resolver {
	return &Resolver{HTTP: http.DefaultClient, S3: defaultS3}
}

func defaultS3(ctx context.Context) (*s3.Client, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Resolve returns a local path for ref.
func (r *Resolver) Resolve(ctx context.Context, ref string) (Local, error) {
	// Strip an optional #page fragment from URLs; plain paths may contain '#'.
	if strings.Contains(ref, "://") {
		if i := strings.Index(ref, "#"); i >= 0 {
			ref = ref[:i]
		}
	}

	switch {
	case strings.HasPrefix(ref, "s3://"):
		bucket, key, err := ParseS3URL(ref)
		if err != nil {
			return Local{}, err
		}
		p, err := r.downloadS3(ctx, bucket, key)
		if err != nil {
			return Local{}, err
		}
		return Local{Path: p, Name: path.Base(key), temp: true}, nil
	case strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://"):
		p, err := r.downloadHTTP(ctx, ref)
		if err != nil {
			return Local{}, err
		}
		return Local{Path: p, Name: nameFromURL(ref), temp: true}, nil
	case strings.HasPrefix(ref, "file://"):
		p := strings.TrimPrefix(ref, "file://")
		return Local{Path: p, Name: filepath.Base(p)}, nil
	case strings.Contains(ref, "://"):
		return Local{}, fmt.Errorf("%w: %s", ErrUnsupportedRef, ref)
	default:
		return Local{Path: ref, Name: filepath.Base(ref)}, nil
	}
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(s3url string) (bucket, key string, err error) {
	p := strings.TrimPrefix(s3url, "s3://")
	slash := strings.Index(p, "/")
	if slash <= 0 || slash == len(p)-1 {
		return "", "", fmt.Errorf("invalid s3 url: %s", s3url)
	}
	return p[:slash], p[slash+1:], nil
}

func nameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || path.Base(u.Path) == "/" || path.Base(u.Path) == "." {
		return "download.pdf"
	}
	return path.Base(u.Path)
}

func createTemp() (*os.File, error) {
	return os.Create(filepath.Join(os.TempDir(), TempPrefix+uuid.NewString()+".pdf"))
}

func (r *Resolver) downloadHTTP(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	client := r.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: http %d", rawURL, resp.StatusCode)
	}
	f, err := createTemp()
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("download %s: %w", rawURL, err)
	}
	return f.Name(), nil
}

func (r *Resolver) downloadS3(ctx context.Context, bucket, key string) (string, error) {
	newClient := r.S3
	if newClient == nil {
		newClient = defaultS3
	}
	cli, err := newClient(ctx)
	if err != nil {
		return "", err
	}

	// Ensure .pdf extension for pdfcpu expectations
	f, err := createTemp()
	if err != nil {
		return "", err
	}
	defer f.Close()

	n, err := manager.NewDownloader(cli).Download(ctx, f, &s3.GetObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}
	log.Info().Str("bucket", bucket).Str("key", key).Int64("bytes", n).Str("file", filepath.Base(f.Name())).Msg("downloaded s3 pdf to temp")
	return f.Name(), nil
}

// CleanupTemps removes temp files created by this package that are
// older than maxAge.
func CleanupTemps(maxAge time.Duration) int {
	entries, err := os.ReadDir(os.TempDir())
	if err != nil {
		return 0
	}
	now := time.Now()
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), TempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if os.Remove(filepath.Join(os.TempDir(), e.Name())) == nil {
			removed++
		}
	}
	return removed
}
