// Package storage wraps the S3 client used for profile pictures. A MinIO
// endpoint is supported for local development via path-style addressing.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/evently/evently-backend/internal/config"
)

// ErrObjectNotFound reports a missing key.
var ErrObjectNotFound = errors.New("storage: object not found")

// connectAttempts bounds the startup retry. This is the only retry loop in
// the system; per-request failures are surfaced immediately.
const connectAttempts = 5

type Client struct {
	api    *s3.S3
	bucket string
}

// NewClient builds the S3 client and verifies the bucket, retrying a fixed
// number of times so the server survives the object store coming up a few
// seconds later in docker-compose. The bucket is created when missing.
func NewClient(cfg config.Config) (*Client, error) {
	awsCfg := &aws.Config{
		Region:      aws.String(cfg.S3Region),
		Credentials: credentials.NewStaticCredentials(cfg.S3AccessKey, cfg.S3SecretKey, ""),
	}
	if cfg.S3Endpoint != "" {
		awsCfg.Endpoint = aws.String(cfg.S3Endpoint)
		awsCfg.S3ForcePathStyle = aws.Bool(true)
		if !cfg.S3UseSSL {
			awsCfg.DisableSSL = aws.Bool(true)
		}
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}
	c := &Client{api: s3.New(sess), bucket: cfg.S3Bucket}

	var lastErr error
	for i := 1; i <= connectAttempts; i++ {
		if _, lastErr = c.api.HeadBucket(&s3.HeadBucketInput{Bucket: aws.String(c.bucket)}); lastErr == nil {
			return c, nil
		}
		if _, err := c.api.CreateBucket(&s3.CreateBucketInput{Bucket: aws.String(c.bucket)}); err == nil {
			return c, nil
		}
		log.Printf("storage: bucket check failed (attempt %d/%d): %v", i, connectAttempts, lastErr)
		time.Sleep(time.Duration(i) * time.Second)
	}
	return nil, fmt.Errorf("object storage unreachable: %w", lastErr)
}

// Upload stores an object and returns its public URL.
func (c *Client) Upload(key string, r io.Reader, contentType string) (string, error) {
	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, r); err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	_, err := c.api.PutObject(&s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return c.objectURL(key), nil
}

// Get streams an object back; callers must close the reader.
func (c *Client) Get(key string) (io.ReadCloser, string, error) {
	out, err := c.api.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, "", ErrObjectNotFound
		}
		return nil, "", fmt.Errorf("get object: %w", err)
	}
	return out.Body, aws.StringValue(out.ContentType), nil
}

// Delete removes an object; deleting a missing key is not an error in S3.
func (c *Client) Delete(key string) error {
	_, err := c.api.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

func (c *Client) objectURL(key string) string {
	endpoint := aws.StringValue(c.api.Config.Endpoint)
	if endpoint != "" && !strings.Contains(endpoint, "amazonaws.com") {
		// MinIO-style path URL.
		proto := "https"
		if c.api.Config.DisableSSL != nil && *c.api.Config.DisableSSL {
			proto = "http"
		}
		endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
		return fmt.Sprintf("%s://%s/%s/%s", proto, endpoint, c.bucket, key)
	}
	region := aws.StringValue(c.api.Config.Region)
	if region == "" {
		region = "us-east-1"
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, region, key)
}
