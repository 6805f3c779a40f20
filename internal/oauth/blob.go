package oauth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/joshp123/thinqhome/internal/config"
)

var ErrBlobNotFound = errors.New("oauth blob not found")

// BlobStore mirrors refresh state to durable storage, keyed by provider.
type BlobStore interface {
	Load(ctx context.Context, provider string) ([]byte, error)
	Save(ctx context.Context, provider string, data []byte) error
}

// S3Store keeps one JSON object per provider in an S3-compatible bucket.
type S3Store struct {
	client *minio.Client
	bucket string
	prefix string
}

type blobSettings struct {
	host      string
	secure    bool
	bucket    string
	prefix    string
	region    string
	accessKey string
	secretKey string
}

func NewS3Store(cfg *config.OAuthConfig) (*S3Store, error) {
	settings, err := resolveBlobSettings(cfg)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(settings.host, &minio.Options{
		Creds:  credentials.NewStaticV4(settings.accessKey, settings.secretKey, ""),
		Secure: settings.secure,
		Region: settings.region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Store{client: client, bucket: settings.bucket, prefix: settings.prefix}, nil
}

func resolveBlobSettings(cfg *config.OAuthConfig) (blobSettings, error) {
	if cfg == nil {
		return blobSettings{}, fmt.Errorf("missing oauth config")
	}
	endpoint := strings.TrimSpace(cfg.BlobEndpoint)
	s := blobSettings{
		bucket: strings.TrimSpace(cfg.BlobBucket),
		prefix: strings.Trim(strings.TrimSpace(cfg.BlobPrefix), "/"),
		region: strings.TrimSpace(cfg.BlobRegion),
	}
	if endpoint == "" || s.bucket == "" {
		return blobSettings{}, fmt.Errorf("blob endpoint and bucket are required")
	}
	if s.prefix == "" {
		s.prefix = config.DefaultOAuthPrefix
	}

	var err error
	if s.host, s.secure, err = parseEndpoint(endpoint); err != nil {
		return blobSettings{}, err
	}
	if s.accessKey, err = readSecretFile(cfg.BlobAccessKeyFile); err != nil {
		return blobSettings{}, fmt.Errorf("read blob access key: %w", err)
	}
	if s.secretKey, err = readSecretFile(cfg.BlobSecretKeyFile); err != nil {
		return blobSettings{}, fmt.Errorf("read blob secret key: %w", err)
	}
	return s, nil
}

func (s *S3Store) Load(ctx context.Context, provider string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(provider), minio.GetObjectOptions{})
	if err != nil {
		return nil, blobError(err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, blobError(err)
	}
	return data, nil
}

func (s *S3Store) Save(ctx context.Context, provider string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, s.key(provider), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  "application/json",
		UserMetadata: map[string]string{"schema-version": strconv.Itoa(SchemaVersion)},
	})
	return blobError(err)
}

func (s *S3Store) key(provider string) string {
	return path.Join(s.prefix, provider+".json")
}

// blobError maps a missing object to ErrBlobNotFound.
func blobError(err error) error {
	if err == nil {
		return nil
	}
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return ErrBlobNotFound
	}
	return err
}

// parseEndpoint accepts either a bare host[:port] (TLS) or a URL whose
// scheme decides TLS.
func parseEndpoint(raw string) (string, bool, error) {
	if !strings.Contains(raw, "://") {
		return raw, true, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false, fmt.Errorf("invalid endpoint: %q", raw)
	}
	return u.Host, u.Scheme == "https", nil
}

func readSecretFile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
