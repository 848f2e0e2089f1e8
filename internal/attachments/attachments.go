// Package attachments stores campaign attachment blobs. S3 in deployment,
// a local directory for development, selected by config the same way the
// rest of the platform picks its storage backend.
package attachments

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Store persists attachment blobs and returns a URL the stored campaign
// can reference.
type Store interface {
	Put(ctx context.Context, campaignID, filename string, data []byte) (string, error)
	Delete(ctx context.Context, url string) error
}

// Config selects and parameterizes the backend.
type Config struct {
	Type      string // "s3" or "local"
	Bucket    string
	Region    string
	Prefix    string
	LocalPath string
}

// New builds the configured store.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Type {
	case "s3":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		return &S3Store{
			client: s3.NewFromConfig(awsCfg),
			bucket: cfg.Bucket,
			region: cfg.Region,
			prefix: cfg.Prefix,
		}, nil
	case "local", "":
		if err := os.MkdirAll(cfg.LocalPath, 0o755); err != nil {
			return nil, fmt.Errorf("creating attachment directory: %w", err)
		}
		return &LocalStore{root: cfg.LocalPath}, nil
	default:
		return nil, fmt.Errorf("unknown attachment storage type %q", cfg.Type)
	}
}

// S3Store stores attachments in an S3 bucket under
// <prefix><campaignID>/<uuid>-<filename>.
type S3Store struct {
	client *s3.Client
	bucket string
	region string
	prefix string
}

// Put uploads the blob and returns its public object URL.
func (s *S3Store) Put(ctx context.Context, campaignID, filename string, data []byte) (string, error) {
	key := path.Join(s.prefix, campaignID, uuid.New().String()+"-"+sanitize(filename))
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", filename, err)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// Delete removes the object referenced by a previously returned URL.
func (s *S3Store) Delete(ctx context.Context, url string) error {
	marker := ".amazonaws.com/"
	idx := strings.Index(url, marker)
	if idx < 0 {
		return fmt.Errorf("not an S3 attachment URL: %s", url)
	}
	key := url[idx+len(marker):]
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// LocalStore keeps attachments on the local filesystem, for development
// and tests.
type LocalStore struct {
	root string
}

// Put writes the blob under root/<campaignID>/ and returns a file:// URL.
func (l *LocalStore) Put(ctx context.Context, campaignID, filename string, data []byte) (string, error) {
	dir := filepath.Join(l.root, campaignID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating attachment directory: %w", err)
	}
	dest := filepath.Join(dir, uuid.New().String()+"-"+sanitize(filename))
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", filename, err)
	}
	return "file://" + dest, nil
}

// Delete removes a locally stored attachment.
func (l *LocalStore) Delete(ctx context.Context, url string) error {
	p := strings.TrimPrefix(url, "file://")
	if !strings.HasPrefix(filepath.Clean(p), filepath.Clean(l.root)) {
		return fmt.Errorf("attachment path outside storage root: %s", p)
	}
	return os.Remove(p)
}

// sanitize strips path separators and other risky characters out of
// user-supplied filenames before they reach a storage key.
func sanitize(filename string) string {
	filename = filepath.Base(filename)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, filename)
}
