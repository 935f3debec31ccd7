package model

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Fetcher retrieves a model artifact by URI.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// S3Getter is the subset of the S3 client used for s3:// artifacts.
type S3Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// ArtifactFetcher reads local paths and file:// URIs from disk, http(s) URLs
// with HTTPClient and s3://bucket/key objects with S3.
type ArtifactFetcher struct {
	HTTPClient *http.Client
	S3         S3Getter
}

func (f *ArtifactFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact uri %q: %w", uri, err)
	}

	switch u.Scheme {
	case "":
		return os.ReadFile(uri)
	case "file":
		return os.ReadFile(u.Path)
	case "http", "https":
		return f.fetchHTTP(ctx, uri)
	case "s3":
		return f.fetchS3(ctx, u.Host, strings.TrimPrefix(u.Path, "/"))
	}
	return nil, fmt.Errorf("unsupported artifact scheme %q", u.Scheme)
}

func (f *ArtifactFetcher) fetchHTTP(ctx context.Context, uri string) ([]byte, error) {
	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download %s: status %s", uri, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (f *ArtifactFetcher) fetchS3(ctx context.Context, bucket, key string) ([]byte, error) {
	if f.S3 == nil {
		return nil, fmt.Errorf("s3 client not configured for s3://%s/%s", bucket, key)
	}
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("s3 uri requires bucket and key, got s3://%s/%s", bucket, key)
	}

	out, err := f.S3.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

type S3Config struct {
	Region    string
	Endpoint  string // optional, e.g. MinIO
	PathStyle bool
}

// NewS3Client builds a client from the default AWS credentials chain.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}), nil
}
