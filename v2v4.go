package awsign

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	headerAuthorization     = "Authorization"
	headerContentMD5        = "Content-MD5"
	headerContentType       = "Content-Type"
	headerDate              = "Date"
	headerXAmzContentSha256 = "X-Amz-Content-Sha256"
	headerXAmzDate          = "X-Amz-Date"
	headerXAmzSecurityToken = "X-Amz-Security-Token"

	headerHost       = "host"
	xAmzHeaderPrefix = "x-amz-"

	DefaultRegion   = "us-east-1"
	DefaultEndpoint = "s3.amazonaws.com"

	serviceS3 = "s3"
)

// Variant selects the signing protocol.
type Variant int

const (
	// VariantV4 is the current derived-key scheme (AWS4-HMAC-SHA256).
	VariantV4 Variant = iota
	// VariantV2 is the legacy per-request HMAC-SHA1 scheme.
	VariantV2
)

func (v Variant) String() string {
	switch v {
	case VariantV4:
		return "v4"
	case VariantV2:
		return "v2"
	default:
		return "unknown"
	}
}

func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(s) {
	case "v4", "4", "":
		return VariantV4, nil
	case "v2", "2":
		return VariantV2, nil
	default:
		return 0, nestError(ErrInvalidVariant, "%q", s)
	}
}

// Credentials are borrowed for the duration of a single signing call.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

func (c Credentials) validate() error {
	if c.AccessKeyID == "" {
		return ErrMissingAccessKeyID
	}
	if c.SecretAccessKey == "" {
		return ErrMissingSecretAccessKey
	}
	return nil
}

// CanonicalForm is the deterministic serialization of a request that gets
// signed.
type CanonicalForm struct {
	Variant Variant
	// Request is the canonical request for VariantV4 and the string to sign
	// for VariantV2.
	Request string
	// SignedHeaders and PayloadHash are only set for VariantV4.
	SignedHeaders []string
	PayloadHash   string

	query string
}

// signingContext is recomputed for every call from a single clock read.
type signingContext struct {
	time    time.Time
	region  string
	service string
	variant Variant
}

type variantSigner interface {
	canonicalize(st *requestState, creds Credentials, sc signingContext) (CanonicalForm, error)
	authorize(st *requestState, creds Credentials, sc signingContext, cf CanonicalForm) error
}

type endpoint struct {
	scheme    string
	host      string
	pathStyle bool
}

func parseEndpoint(raw, scheme string, pathStyle bool) (endpoint, error) {
	e := endpoint{
		scheme:    scheme,
		host:      raw,
		pathStyle: pathStyle,
	}
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return endpoint{}, nestError(ErrInvalidEndpoint, "%w", err)
		}
		if (u.Path != "" && u.Path != "/") || u.RawQuery != "" || u.Fragment != "" || u.User != nil {
			return endpoint{}, nestError(ErrInvalidEndpoint, "%q must be a scheme and host only", raw)
		}
		e.scheme, e.host = u.Scheme, u.Host
	} else if strings.ContainsAny(strings.TrimSuffix(raw, "/"), "/?#@") {
		return endpoint{}, nestError(ErrInvalidEndpoint, "%q must be a host only", raw)
	}
	if e.scheme == "" {
		e.scheme = "https"
	}
	e.host = strings.TrimSuffix(e.host, "/")
	if e.host == "" {
		e.host = DefaultEndpoint
	}
	return e, nil
}

func (e endpoint) hostFor(bucket string) string {
	if e.pathStyle {
		return e.host
	}
	return bucket + "." + e.host
}

func (e endpoint) pathFor(bucket, key string) string {
	if !e.pathStyle {
		return "/" + key
	}
	if key == "" {
		return "/" + bucket
	}
	return "/" + bucket + "/" + key
}

func (e endpoint) urlFor(bucket, key, rawQuery string) *url.URL {
	p := e.pathFor(bucket, key)
	return &url.URL{
		Scheme:   e.scheme,
		Host:     e.hostFor(bucket),
		Path:     p,
		RawPath:  uriEncode(p, true),
		RawQuery: rawQuery,
	}
}

type Config struct {
	// Variant used by Sign and Canonicalize. Presign always uses VariantV4.
	Variant Variant
	// Region defaults to DefaultRegion.
	Region string
	// Endpoint is a host[:port], optionally with a scheme. A path, query or
	// user info is rejected. It defaults to DefaultEndpoint.
	Endpoint string
	// Scheme defaults to https unless Endpoint carries one.
	Scheme string
	// PathStyle addresses buckets as endpoint/bucket/key instead of
	// bucket.endpoint/key.
	PathStyle bool

	Logger *zap.Logger
}

// Signer signs requests for one endpoint and region. It holds no mutable
// state and can be used concurrently.
type Signer struct {
	variant  Variant
	region   string
	endpoint endpoint
	logger   *zap.Logger

	v2 *v2Signer
	v4 *v4Signer

	now func() time.Time
}

func NewSigner(cfg Config) (*Signer, error) {
	if cfg.Variant != VariantV4 && cfg.Variant != VariantV2 {
		return nil, nestError(ErrInvalidVariant, "%d", int(cfg.Variant))
	}

	e, err := parseEndpoint(cfg.Endpoint, cfg.Scheme, cfg.PathStyle)
	if err != nil {
		return nil, err
	}

	region := cfg.Region
	if region == "" {
		region = DefaultRegion
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Signer{
		variant:  cfg.Variant,
		region:   region,
		endpoint: e,
		logger:   logger,
		v2:       &v2Signer{},
		v4:       &v4Signer{endpoint: e},
		now:      time.Now,
	}, nil
}

func (s *Signer) strategy(v Variant) variantSigner {
	if v == VariantV2 {
		return s.v2
	}
	return s.v4
}

func (s *Signer) signingContext(v Variant) signingContext {
	return signingContext{
		time:    s.now().UTC(),
		region:  s.region,
		service: serviceS3,
		variant: v,
	}
}

// Canonicalize returns the canonical form Sign would produce for r right now,
// without consuming r.
func (s *Signer) Canonicalize(r *Request, creds Credentials) (CanonicalForm, error) {
	st, err := r.snapshot()
	if err != nil {
		return CanonicalForm{}, err
	}
	sc := s.signingContext(s.variant)
	return s.strategy(sc.variant).canonicalize(st, creds, sc)
}

// Sign authenticates r with an Authorization header. r is consumed and cannot
// be signed again.
func (s *Signer) Sign(r *Request, creds Credentials) (*SignedRequest, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}

	st, err := r.consume()
	if err != nil {
		return nil, err
	}

	sc := s.signingContext(s.variant)
	strategy := s.strategy(sc.variant)

	cf, err := strategy.canonicalize(st, creds, sc)
	if err != nil {
		return nil, err
	}
	if err = strategy.authorize(st, creds, sc, cf); err != nil {
		return nil, err
	}

	s.logger.Debug("signed request",
		zap.Stringer("variant", sc.variant),
		zap.String("method", string(st.method)),
		zap.String("bucket", st.bucket),
		zap.String("key", st.key),
		zap.Strings("signedHeaders", cf.SignedHeaders),
		zap.Time("time", sc.time),
	)

	return &SignedRequest{
		method: st.method,
		url:    s.endpoint.urlFor(st.bucket, st.key, st.rawQuery),
		header: st.header,
		body:   st.body,
	}, nil
}

// Presign authenticates r through the query string of the returned URL. It
// always uses VariantV4 and leaves r untouched, so r can still be signed with
// Sign afterwards.
func (s *Signer) Presign(r *Request, creds Credentials, expires time.Duration) (*PresignedRequest, error) {
	if err := creds.validate(); err != nil {
		return nil, err
	}

	seconds, err := validatePresignedExpiration(expires)
	if err != nil {
		return nil, err
	}

	if r.consumed {
		return nil, ErrRequestConsumed
	}

	st, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	st.expires = seconds

	sc := s.signingContext(VariantV4)

	cf, err := s.v4.canonicalize(st, creds, sc)
	if err != nil {
		return nil, err
	}
	if err = s.v4.authorize(st, creds, sc, cf); err != nil {
		return nil, err
	}

	s.logger.Debug("presigned request",
		zap.String("method", string(st.method)),
		zap.String("bucket", st.bucket),
		zap.String("key", st.key),
		zap.Strings("signedHeaders", cf.SignedHeaders),
		zap.Int64("expires", seconds),
		zap.Time("time", sc.time),
	)

	header := make(http.Header)
	for _, name := range cf.SignedHeaders {
		if name == headerHost {
			continue
		}
		header[http.CanonicalHeaderKey(name)] = slices.Clone(st.header.Values(name))
	}

	return &PresignedRequest{
		Method:  string(st.method),
		URL:     s.endpoint.urlFor(st.bucket, st.key, st.rawQuery),
		Header:  header,
		Expires: sc.time.Add(time.Duration(seconds) * time.Second),
	}, nil
}

// SignedRequest is a request authenticated with an Authorization header. It
// is immutable; accessors return copies.
type SignedRequest struct {
	method Method
	url    *url.URL
	header http.Header
	body   []byte
}

func (r *SignedRequest) Method() string {
	return string(r.method)
}

func (r *SignedRequest) URL() *url.URL {
	u := *r.url
	return &u
}

func (r *SignedRequest) Header() http.Header {
	return r.header.Clone()
}

func (r *SignedRequest) Body() []byte {
	return slices.Clone(r.body)
}

// HTTPRequest builds an *http.Request ready to be sent as-is.
func (r *SignedRequest) HTTPRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, string(r.method), r.url.String(), bytes.NewReader(r.body))
	if err != nil {
		return nil, err
	}
	req.Header = r.header.Clone()
	return req, nil
}

// PresignedRequest carries its authentication in URL. Header holds the
// signed headers, other than Host, the bearer has to send along.
type PresignedRequest struct {
	Method  string
	URL     *url.URL
	Header  http.Header
	Expires time.Time
}
