package s3infra

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	key, contentType, body string
	err                    error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, nil
}

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://signed.example/" + aws.ToString(in.Key)}, nil
}

func TestUpload(t *testing.T) {
	objs := &fakeObjects{}
	store := NewStoreWith(objs, fakePresigner{}, "bucket")

	loc, err := store.Upload(context.Background(), "manifests/a.csv", strings.NewReader("x,y"), "text/csv")
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/manifests/a.csv", loc)
	assert.Equal(t, "manifests/a.csv", objs.key)
	assert.Equal(t, "text/csv", objs.contentType)
	assert.Equal(t, "x,y", objs.body)
}

func TestUpload_Error(t *testing.T) {
	store := NewStoreWith(&fakeObjects{err: errors.New("denied")}, fakePresigner{}, "bucket")
	_, err := store.Upload(context.Background(), "k", strings.NewReader(""), "text/csv")
	assert.ErrorContains(t, err, "denied")
}

func TestPresignedURL(t *testing.T) {
	store := NewStoreWith(&fakeObjects{}, fakePresigner{}, "bucket")
	url, err := store.PresignedURL(context.Background(), "manifests/a.csv", 0)
	require.NoError(t, err)
	assert.Equal(t, "https://signed.example/manifests/a.csv", url)
}
