package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type Options struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
}

// Client stores uploaded documents and completion archives in an S3
// compatible bucket (MinIO in development).
type Client struct {
	s3     *s3.Client
	bucket string
}

func New(ctx context.Context, o Options) (*Client, error) {
	region := o.Region
	if region == "" {
		region = "us-east-1"
	}
	endpoint := o.Endpoint
	if !strings.Contains(endpoint, "://") {
		endpoint = fmt.Sprintf("http://%s", endpoint)
	}
	cfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(o.AccessKey, o.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(so *s3.Options) {
		so.BaseEndpoint = aws.String(endpoint)
		so.UsePathStyle = true
	})
	return &Client{s3: client, bucket: o.Bucket}, nil
}

// PutJSON writes v under prefix/<uuid>.json and returns its s3:// ref.
func (c *Client) PutJSON(ctx context.Context, prefix string, v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	key := fmt.Sprintf("%s/%s.json", prefix, uuid.New().String())
	return c.put(ctx, key, b, "application/json")
}

// PutFile keeps an uploaded document under prefix/<uuid>/<name>.
func (c *Client) PutFile(ctx context.Context, prefix, name string, data []byte) (string, error) {
	key := fmt.Sprintf("%s/%s/%s", prefix, uuid.New().String(), path.Base(name))
	return c.put(ctx, key, data, "application/octet-stream")
}

func (c *Client) put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &c.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put s3 object %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", c.bucket, key), nil
}

func parseS3Ref(ref string) (string, string, error) {
	const p = "s3://"
	if !strings.HasPrefix(ref, p) {
		return "", "", fmt.Errorf("bad s3 ref (missing s3://): %q", ref)
	}
	s := strings.TrimPrefix(ref, p)
	slash := strings.IndexByte(s, '/')
	if slash <= 0 || slash == len(s)-1 {
		return "", "", fmt.Errorf("bad s3 ref (need bucket/key): %q", ref)
	}
	return s[:slash], s[slash+1:], nil
}

// GetJSON decodes the object at ref into v.
func (c *Client) GetJSON(ctx context.Context, ref string, v any) error {
	b, err := c.Get(ctx, ref)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode s3 object %s: %w", ref, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, ref string) ([]byte, error) {
	bucket, key, err := parseS3Ref(ref)
	if err != nil {
		return nil, err
	}
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("get s3 object %s: %w", ref, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
