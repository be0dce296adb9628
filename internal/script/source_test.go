package script

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sc.lua")
	require.NoError(t, os.WriteFile(path, []byte("print('hi')"), 0o644))

	src := NewFileSource(path)
	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "print('hi')", string(data))
	assert.Equal(t, "file:"+path, src.Name())

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.lua")).Load(context.Background())
	assert.ErrorIs(t, err, ErrScriptNotFound)
}

type fakeGetter struct {
	objects map[string]string
	err     error
}

func (f *fakeGetter) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.objects[aws.ToString(params.Bucket)+"/"+aws.ToString(params.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestS3Source(t *testing.T) {
	getter := &fakeGetter{objects: map[string]string{"scripts/sc.lua": "return 1"}}

	src := &S3Source{client: getter, bucket: "scripts", key: "sc.lua"}
	data, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "return 1", string(data))
	assert.Equal(t, "s3://scripts/sc.lua", src.Name())

	missing := &S3Source{client: getter, bucket: "scripts", key: "other.lua"}
	_, err = missing.Load(context.Background())
	assert.ErrorIs(t, err, ErrScriptNotFound)

	broken := &S3Source{client: &fakeGetter{err: errors.New("network down")}, bucket: "scripts", key: "sc.lua"}
	_, err = broken.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrScriptNotFound)
}
