package awsign

import (
	"errors"
	"testing"

	"github.com/zeebo/assert"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"
)

func TestSigner(t *testing.T) {
	for _, variant := range []Variant{VariantV2, VariantV4} {
		t.Run(variant.String(), func(t *testing.T) {
			s := newTestSigner(t, Config{
				Variant: variant,
				Logger:  zaptest.NewLogger(t),
			})

			newRequest := func() *Request {
				return NewRequest(MethodPut, "examplebucket", "photos/puppy.jpg").
					WithHeader("X-Amz-Meta-Author", "alice").
					WithContent(NewBytesContent([]byte("Welcome to Amazon S3."), ""))
			}

			t.Run("deterministic", func(t *testing.T) {
				a, err := s.Sign(newRequest(), testCredentials)
				assert.NoError(t, err)
				b, err := s.Sign(newRequest(), testCredentials)
				assert.NoError(t, err)
				assert.Equal(t, a.Header().Get("Authorization"), b.Header().Get("Authorization"))
			})
			t.Run("consumed", func(t *testing.T) {
				r := newRequest()
				_, err := s.Sign(r, testCredentials)
				assert.NoError(t, err)
				_, err = s.Sign(r, testCredentials)
				assert.That(t, errors.Is(err, ErrRequestConsumed))
			})
			t.Run("missing credentials", func(t *testing.T) {
				r := newRequest()

				_, err := s.Sign(r, Credentials{SecretAccessKey: testSecretAccessKey})
				assert.That(t, errors.Is(err, ErrMissingAccessKeyID))
				_, err = s.Sign(r, Credentials{AccessKeyID: testAccessKeyID})
				assert.That(t, errors.Is(err, ErrMissingSecretAccessKey))

				_, err = s.Sign(r, testCredentials)
				assert.NoError(t, err)
			})
			t.Run("missing bucket", func(t *testing.T) {
				_, err := s.Sign(NewRequest(MethodGet, " ", "key"), testCredentials)
				assert.That(t, errors.Is(err, ErrMissingBucket))
				assert.True(t, IsPreconditionError(err))
			})
			t.Run("concurrent", func(t *testing.T) {
				want, err := s.Sign(newRequest(), testCredentials)
				assert.NoError(t, err)

				var g errgroup.Group
				for range 16 {
					g.Go(func() error {
						got, err := s.Sign(newRequest(), testCredentials)
						if err != nil {
							return err
						}
						if got.Header().Get("Authorization") != want.Header().Get("Authorization") {
							return errors.New("signature mismatch")
						}
						return nil
					})
				}
				assert.NoError(t, g.Wait())
			})
		})
	}
}

func TestNewSigner(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s, err := NewSigner(Config{})
		assert.NoError(t, err)
		assert.Equal(t, DefaultRegion, s.region)
		assert.Equal(t, "https", s.endpoint.scheme)
		assert.Equal(t, DefaultEndpoint, s.endpoint.host)
		assert.False(t, s.endpoint.pathStyle)
	})
	t.Run("endpoint with scheme", func(t *testing.T) {
		s, err := NewSigner(Config{Endpoint: "http://127.0.0.1:9000/", Scheme: "https"})
		assert.NoError(t, err)
		assert.Equal(t, "http", s.endpoint.scheme)
		assert.Equal(t, "127.0.0.1:9000", s.endpoint.host)
	})
	t.Run("endpoint with path", func(t *testing.T) {
		for _, raw := range []string{
			"https://minio.example.com/prefix",
			"http://localhost:9000/?x=1",
			"https://user@minio.example.com",
			"minio.example.com/prefix",
		} {
			_, err := NewSigner(Config{Endpoint: raw})
			assert.That(t, errors.Is(err, ErrInvalidEndpoint))
			assert.True(t, IsPreconditionError(err))
		}

		_, err := NewSigner(Config{Endpoint: "minio.example.com:9000/"})
		assert.NoError(t, err)
	})
	t.Run("invalid variant", func(t *testing.T) {
		_, err := NewSigner(Config{Variant: Variant(7)})
		assert.That(t, errors.Is(err, ErrInvalidVariant))
	})
}

func TestParseVariant(t *testing.T) {
	for in, want := range map[string]Variant{
		"":   VariantV4,
		"v4": VariantV4,
		"V2": VariantV2,
		"2":  VariantV2,
	} {
		got, err := ParseVariant(in)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseVariant("v3")
	assert.That(t, errors.Is(err, ErrInvalidVariant))
}
