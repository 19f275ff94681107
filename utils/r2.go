// utils/r2.go
package utils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Config holds the Cloudflare R2 credentials and target bucket.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	AccessKeySecret string
	Bucket          string
	CDNBaseURL      string
}

func (c R2Config) endpoint() string {
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
}

// R2Client uploads objects to one R2 bucket.
type R2Client struct {
	s3      *s3.Client
	bucket  string
	baseURL string
}

func NewR2Client(ctx context.Context, cfg R2Config) (*R2Client, error) {
	if cfg.AccountID == "" || cfg.Bucket == "" {
		return nil, errors.New("R2 account id and bucket are required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.AccessKeySecret, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.endpoint())
	})

	baseURL := cfg.CDNBaseURL
	if baseURL == "" {
		baseURL = cfg.endpoint() + "/" + cfg.Bucket
	}

	return &R2Client{s3: client, bucket: cfg.Bucket, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// PutJSON stores data under key and returns the object's public URL.
func (c *R2Client) PutJSON(ctx context.Context, key string, data []byte) (string, error) {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to R2: %w", err)
	}

	return c.ObjectURL(key), nil
}

// ObjectURL is where key is served from, preferring the CDN when set.
func (c *R2Client) ObjectURL(key string) string {
	return fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(key, "/"))
}
