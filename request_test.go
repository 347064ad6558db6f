package awsign

import (
	"errors"
	"testing"

	"github.com/zeebo/assert"
)

func TestNewRequest(t *testing.T) {
	r := NewRequest(MethodGet, " ExampleBucket ", "/photos/puppy.jpg")
	assert.NoError(t, r.err)
	assert.Equal(t, "examplebucket", r.bucket)
	assert.Equal(t, "photos/puppy.jpg", r.key)

	r = NewRequest(Method("PATCH"), "examplebucket", "key")
	assert.That(t, errors.Is(r.err, ErrInvalidMethod))
}

func TestRequestHeaders(t *testing.T) {
	t.Run("invalid name", func(t *testing.T) {
		r := NewRequest(MethodGet, "examplebucket", "key").WithHeader("Bad Header", "x")
		assert.That(t, errors.Is(r.err, ErrInvalidHeader))
	})
	t.Run("signer owned", func(t *testing.T) {
		for _, name := range []string{"Authorization", "x-amz-date", "X-Amz-Content-Sha256", "X-AMZ-SECURITY-TOKEN"} {
			r := NewRequest(MethodGet, "examplebucket", "key").WithHeader(name, "x")
			assert.That(t, errors.Is(r.err, ErrInvalidHeader))
		}
	})
	t.Run("first error wins", func(t *testing.T) {
		r := NewRequest(MethodGet, "examplebucket", "key").
			WithHeader("Bad Header", "x").
			WithQuery("", "x")
		assert.That(t, errors.Is(r.err, ErrInvalidHeader))

		_, err := r.snapshot()
		assert.That(t, errors.Is(err, ErrInvalidHeader))
	})
}

func TestRequestQuery(t *testing.T) {
	r := NewRequest(MethodGet, "examplebucket", "").
		WithQuery("prefix", "J").
		WithRawQuery("max-keys=2&list-type=2&uploads")
	assert.NoError(t, r.err)
	assert.Equal(t, "J", r.query.Get("prefix"))
	assert.Equal(t, "2", r.query.Get("max-keys"))
	assert.That(t, r.query.Has("uploads"))

	r = NewRequest(MethodGet, "examplebucket", "").WithRawQuery("=value")
	assert.That(t, errors.Is(r.err, ErrInvalidQuery))
}

func TestContent(t *testing.T) {
	t.Run("zero", func(t *testing.T) {
		var c Content
		assert.Equal(t, ContentNone, c.Kind())
		assert.Equal(t, 0, c.Len())
	})
	t.Run("bytes", func(t *testing.T) {
		data := []byte("data")
		c := NewBytesContent(data, "")
		data[0] = 'X'
		assert.Equal(t, ContentBytes, c.Kind())
		assert.Equal(t, "data", string(c.data))
		assert.Equal(t, "", c.ContentType())
	})
	t.Run("JSON", func(t *testing.T) {
		c, err := NewJSONContent(map[string]any{"enabled": true})
		assert.NoError(t, err)
		assert.Equal(t, ContentJSON, c.Kind())
		assert.Equal(t, `{"enabled":true}`, string(c.data))
		assert.Equal(t, "application/json", c.ContentType())
	})
	t.Run("JSON encoding failure", func(t *testing.T) {
		_, err := NewJSONContent(make(chan int))
		assert.That(t, errors.Is(err, ErrInvalidContent))
	})
	t.Run("content type from header", func(t *testing.T) {
		r := NewRequest(MethodPut, "examplebucket", "key").
			WithHeader("Content-Type", "image/jpeg").
			WithContent(NewBytesContent([]byte("data"), ""))

		st, err := r.snapshot()
		assert.NoError(t, err)
		assert.Equal(t, "image/jpeg", st.contentType)
	})
}

func TestRequestChecksum(t *testing.T) {
	r := NewRequest(MethodPut, "examplebucket", "key").
		WithChecksum(AlgorithmSHA256).
		WithChecksum(AlgorithmSHA256)
	assert.NoError(t, r.err)
	assert.Equal(t, 1, len(r.checksums))

	r = r.WithChecksum(algorithmMD5)
	assert.That(t, errors.Is(r.err, ErrInvalidChecksumAlgorithm))
}

func TestSnapshotIsolation(t *testing.T) {
	r := NewRequest(MethodGet, "examplebucket", "key").WithHeader("X-Amz-Meta-A", "1")

	st, err := r.snapshot()
	assert.NoError(t, err)
	st.header.Set("X-Amz-Meta-A", "2")
	st.query.Set("x", "y")

	assert.Equal(t, "1", r.header.Get("X-Amz-Meta-A"))
	assert.False(t, r.query.Has("x"))
}
