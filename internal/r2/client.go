package r2

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"net/url"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Options configure the archive bucket.
type Options struct {
	AccountID       string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	PublicURL       string // base public URL of the bucket, e.g. https://pub-xxxxxxxx.r2.dev
	Endpoint        string // overrides https://<AccountID>.r2.cloudflarestorage.com
}

// Client archives uploaded documents in a Cloudflare R2 bucket.
type Client struct {
	s3Client   *s3.Client
	bucketName string
	publicURL  string
}

// NewClient returns an R2 client. It returns (nil, nil) when the options are
// incomplete, which leaves archiving disabled.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.AccountID == "" || opts.Bucket == "" || opts.AccessKeyID == "" || opts.SecretAccessKey == "" || opts.PublicURL == "" {
		log.Println("WARN: Cloudflare R2 not fully configured (CLOUDFLARE_ACCOUNT_ID, R2_BUCKET_NAME, R2_ACCESS_KEY_ID, R2_SECRET_ACCESS_KEY, R2_PUBLIC_URL). Document archiving is disabled.")
		return nil, nil
	}
	if _, err := url.Parse(opts.PublicURL); err != nil {
		return nil, fmt.Errorf("invalid R2 public URL %q: %w", opts.PublicURL, err)
	}
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", opts.AccountID)
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config for R2: %w", err)
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	log.Printf("INFO: R2 Client initialized for bucket '%s'", opts.Bucket)
	return &Client{
		s3Client:   s3Client,
		bucketName: opts.Bucket,
		publicURL:  opts.PublicURL,
	}, nil
}

// ObjectKey is the key a document of a quiz session is stored under.
func ObjectKey(sessionID, filename string) string {
	return fmt.Sprintf("documents/%s/%s", sessionID, path.Base(filepath.ToSlash(filename)))
}

// UploadDocument stores body under ObjectKey(sessionID, filename) and
// returns its public URL.
func (c *Client) UploadDocument(ctx context.Context, sessionID, filename string, body io.Reader) (string, error) {
	if c == nil || c.s3Client == nil {
		return "", fmt.Errorf("R2 client not initialized, skipping upload")
	}

	objectKey := ObjectKey(sessionID, filename)
	contentType := mime.TypeByExtension(filepath.Ext(filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := c.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucketName),
		Key:         aws.String(objectKey),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file to R2 (key: %s): %w", objectKey, err)
	}

	baseURL, err := url.Parse(c.publicURL)
	if err != nil {
		return "", fmt.Errorf("invalid R2 public base URL configured")
	}
	baseURL.Path = path.Join(baseURL.Path, objectKey)

	publicFileURL := baseURL.String()
	log.Printf("INFO: Archived document to R2: %s", publicFileURL)
	return publicFileURL, nil
}
