package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockObjectAPI struct {
	keys []string
	objs map[string][]byte
	err  error
}

func (m *mockObjectAPI) GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	key := aws.ToString(in.Key)
	m.keys = append(m.keys, key)
	if m.err != nil {
		return nil, m.err
	}
	b, ok := m.objs[key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func TestS3Store_Key(t *testing.T) {
	s := NewS3StoreWithClient(&mockObjectAPI{}, "veps", "prod/")
	assert.Equal(t, "prod/2026-10/20-1-1.pdf", s.Key("20-1-1", "/2026-10/"))
	assert.Equal(t, "prod/2026-10/extra.PDF", s.Key("extra.PDF", "2026-10"))
}

func TestS3Store_Fetch(t *testing.T) {
	api := &mockObjectAPI{objs: map[string][]byte{"2026-10/20-1-1.pdf": []byte("%PDF")}}
	s := NewS3StoreWithClient(api, "veps", "")

	data, err := s.Fetch(context.Background(), "20-1-1", "2026-10")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), data)
}

func TestS3Store_FetchMissingMapsToNotFound(t *testing.T) {
	s := NewS3StoreWithClient(&mockObjectAPI{objs: map[string][]byte{}}, "veps", "")

	_, err := s.Fetch(context.Background(), "20-1-1", "2026-10")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "s3://veps/2026-10/20-1-1.pdf")
}

func TestS3Store_FetchTransportError(t *testing.T) {
	s := NewS3StoreWithClient(&mockObjectAPI{err: errors.New("dial tcp: refused")}, "veps", "")

	_, err := s.Fetch(context.Background(), "20-1-1", "2026-10")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "refused")
}
