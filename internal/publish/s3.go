package publish

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// S3Config holds the connection settings of the publish bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicBase is the URL prefix visitors use, e.g. a CDN domain in
	// front of the bucket. Empty falls back to the endpoint itself.
	PublicBase string
}

// S3Publisher uploads published pages as objects under a per-site
// prefix. The bucket is created lazily on first use.
type S3Publisher struct {
	client     *minio.Client
	bucketName string
	region     string
	publicBase string
	logger     zerolog.Logger
	initOnce   sync.Once
	initErr    error
}

func NewS3Publisher(cfg S3Config, logger zerolog.Logger) (*S3Publisher, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	base := strings.TrimSuffix(strings.TrimSpace(cfg.PublicBase), "/")
	if base == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		base = fmt.Sprintf("%s://%s/%s", scheme, endpoint, bucket)
	}

	return &S3Publisher{
		client:     client,
		bucketName: bucket,
		region:     region,
		publicBase: base,
		logger:     logger.With().Str("component", "publish").Logger(),
	}, nil
}

func (p *S3Publisher) ensureBucket(ctx context.Context) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is nil")
	}
	p.initOnce.Do(func() {
		exists, err := p.client.BucketExists(ctx, p.bucketName)
		if err != nil {
			p.initErr = err
			return
		}
		if exists {
			return
		}
		p.initErr = p.client.MakeBucket(ctx, p.bucketName, minio.MakeBucketOptions{Region: p.region})
	})
	return p.initErr
}

// Publish uploads every page of the request under the site prefix and
// returns the public URL of the home page. Republishing with the same
// SiteID overwrites in place so the address stays stable.
func (p *S3Publisher) Publish(ctx context.Context, req Request) (Result, error) {
	if len(req.Pages) == 0 {
		return Result{}, fmt.Errorf("nothing to publish")
	}
	if err := p.ensureBucket(ctx); err != nil {
		return Result{}, fmt.Errorf("ensure bucket: %w", err)
	}

	siteID := strings.TrimSpace(req.SiteID)
	if siteID == "" {
		siteID = newSiteID()
	}

	for path, content := range req.Pages {
		body := content
		if path == "index.html" {
			body = injectSEO(content, req.SEOTitle, req.SEODescription)
		}
		key := siteID + "/" + strings.TrimLeft(path, "/")
		_, err := p.client.PutObject(ctx, p.bucketName, key,
			strings.NewReader(body), int64(len(body)),
			minio.PutObjectOptions{ContentType: "text/html; charset=utf-8"})
		if err != nil {
			return Result{}, fmt.Errorf("put %s: %w", key, err)
		}
		p.logger.Debug().Str("key", key).Int("bytes", len(body)).Msg("uploaded")
	}

	return Result{
		SiteID: siteID,
		URL:    p.publicBase + "/" + siteID + "/index.html",
	}, nil
}

// newSiteID returns a short address-friendly id.
func newSiteID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
