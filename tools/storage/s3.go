package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Source reads a seed document from S3.
type S3Source struct {
	bucket string
	key    string
	s3     s3API
}

func NewS3Source(s3Client s3API, bucket, key string) *S3Source {
	return &S3Source{bucket: bucket, key: key, s3: s3Client}
}

func (s *S3Source) Load(ctx context.Context) ([]byte, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get seed object from S3: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// S3Archive writes JSON documents, such as coordination logs, under a prefix.
type S3Archive struct {
	bucket string
	prefix string
	s3     s3API
}

func NewS3Archive(s3Client s3API, bucket, prefix string) *S3Archive {
	return &S3Archive{bucket: bucket, prefix: prefix, s3: s3Client}
}

func (a *S3Archive) Put(ctx context.Context, name string, body []byte) error {
	_, err := a.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.prefix + name),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put %s to S3: %w", name, err)
	}
	return nil
}
