package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockS3 struct {
	objects map[string]string
	err     error
}

func (m *mockS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	body, ok := m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	if m.objects == nil {
		m.objects = map[string]string{}
	}
	m.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = string(b)
	return &s3.PutObjectOutput{}, nil
}

func TestS3Source(t *testing.T) {
	client := &mockS3{objects: map[string]string{"bucket/seed.json": `{"inventory":[]}`}}

	got, err := NewS3Source(client, "bucket", "seed.json").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"inventory":[]}`, string(got))

	_, err = NewS3Source(client, "bucket", "missing.json").Load(context.Background())
	assert.ErrorContains(t, err, "failed to get seed object from S3")
}

func TestS3Archive(t *testing.T) {
	client := &mockS3{}
	archive := NewS3Archive(client, "logs", "coordination/")

	require.NoError(t, archive.Put(context.Background(), "run.json", []byte(`{"ok":true}`)))
	assert.Equal(t, `{"ok":true}`, client.objects["logs/coordination/run.json"])

	client.err = errors.New("access denied")
	assert.ErrorContains(t, archive.Put(context.Background(), "run.json", nil), "access denied")
}
