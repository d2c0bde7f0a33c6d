// Package storage keeps uploaded documents (resumes, job descriptions,
// feedback text) in an S3-compatible bucket and addresses them by URL.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/hiringhub/internal/common"
	sc "github.com/dmitrijs2005/hiringhub/internal/server/config"
	"github.com/google/uuid"
)

var ErrForeignURL = errors.New("url does not belong to this bucket")

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}

	now = time.Now
)

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3Storage struct {
	client  objectAPI
	bucket  string
	baseURL string
}

func NewS3Storage(ctx context.Context, c *sc.Config) (*S3Storage, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3RootUser,
			c.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	endpoint := strings.TrimRight(c.S3BaseEndpoint, "/")
	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &S3Storage{
		client:  client,
		bucket:  c.S3Bucket,
		baseURL: endpoint + "/" + c.S3Bucket + "/",
	}, nil
}

// StorageKey builds a unique object key that keeps the extension of filename.
func StorageKey(filename string) string {
	d := now()
	return fmt.Sprintf("uploads/%d/%02d/%02d/%v%s", d.Year(), d.Month(), d.Day(), uuid.New(), strings.ToLower(path.Ext(filename)))
}

// Upload stores data and returns the object URL.
func (s *S3Storage) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	key := StorageKey(filename)

	in := &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		in.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return "", common.Upstream("storage", err)
	}

	return s.baseURL + key, nil
}

// Download returns the object addressed by url.
func (s *S3Storage) Download(ctx context.Context, url string) ([]byte, error) {
	key, err := s.keyFromURL(url)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, common.ErrorNotFound
		}
		return nil, common.Upstream("storage", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, common.Upstream("storage", err)
	}
	return data, nil
}

// Delete removes the object addressed by url.
func (s *S3Storage) Delete(ctx context.Context, url string) error {
	key, err := s.keyFromURL(url)
	if err != nil {
		return err
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return common.Upstream("storage", err)
	}
	return nil
}

func (s *S3Storage) keyFromURL(url string) (string, error) {
	key, ok := strings.CutPrefix(url, s.baseURL)
	if !ok || key == "" {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	return key, nil
}
