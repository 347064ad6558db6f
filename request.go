package awsign

import (
	"mime"
	"net/http"
	"net/url"
	"slices"
	"strings"

	json "github.com/goccy/go-json"
	"golang.org/x/net/http/httpguts"
	"golang.org/x/text/unicode/norm"
)

// Method is one of the HTTP methods the object-storage API accepts.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
	MethodPost   Method = http.MethodPost
	MethodHead   Method = http.MethodHead
)

func (m Method) valid() bool {
	switch m {
	case MethodGet, MethodPut, MethodDelete, MethodPost, MethodHead:
		return true
	default:
		return false
	}
}

// ContentKind tells raw bytes apart from structured content.
type ContentKind int

const (
	ContentNone ContentKind = iota
	ContentBytes
	ContentJSON
)

const (
	contentTypeJSON        = "application/json"
	contentTypeOctetStream = "application/octet-stream"
)

// Content is the body of a request. The zero value is an empty body.
type Content struct {
	kind        ContentKind
	data        []byte
	contentType string
}

// NewBytesContent returns raw content. An empty contentType leaves the choice
// to the signing variant.
func NewBytesContent(data []byte, contentType string) Content {
	return Content{
		kind:        ContentBytes,
		data:        slices.Clone(data),
		contentType: contentType,
	}
}

// NewJSONContent encodes v as JSON.
func NewJSONContent(v any) (Content, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Content{}, nestError(ErrInvalidContent, "unable to encode JSON: %w", err)
	}
	return Content{
		kind:        ContentJSON,
		data:        data,
		contentType: contentTypeJSON,
	}, nil
}

func (c Content) Kind() ContentKind {
	return c.kind
}

func (c Content) Len() int {
	return len(c.data)
}

func (c Content) ContentType() string {
	return c.contentType
}

// engineHeaders are set by the signer and cannot be supplied by callers.
var engineHeaders = []string{
	headerAuthorization,
	headerXAmzDate,
	headerXAmzContentSha256,
	headerXAmzSecurityToken,
}

// Request is an outgoing request under construction. Setters latch the first
// error, which is reported when the request is signed. A Request is not safe
// for concurrent use.
type Request struct {
	method    Method
	bucket    string
	key       string
	header    http.Header
	query     url.Values
	content   Content
	checksums []ChecksumAlgorithm

	err      error
	consumed bool
}

func NewRequest(method Method, bucket, key string) *Request {
	r := &Request{
		method: method,
		bucket: strings.ToLower(strings.TrimSpace(bucket)),
		key:    strings.TrimPrefix(key, "/"),
		header: make(http.Header),
		query:  make(url.Values),
	}
	if !method.valid() {
		r.fail(nestError(ErrInvalidMethod, "%q is not supported", string(method)))
	}
	if r.bucket == "" {
		r.fail(ErrMissingBucket)
	}
	return r
}

func (r *Request) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// WithHeader adds a header value. Values outside printable ASCII are encoded
// before signing.
func (r *Request) WithHeader(name, value string) *Request {
	if !httpguts.ValidHeaderFieldName(name) {
		r.fail(nestError(ErrInvalidHeader, "%q is not a valid header name", name))
		return r
	}
	for _, h := range engineHeaders {
		if strings.EqualFold(name, h) {
			r.fail(nestError(ErrInvalidHeader, "%s is set by the signer", name))
			return r
		}
	}
	r.header.Add(name, value)
	return r
}

// engineQuery are the presigning parameters owned by the signer.
var engineQuery = []string{
	queryXAmzAlgorithm,
	queryXAmzCredential,
	queryXAmzDate,
	queryXAmzExpires,
	queryXAmzSignedHeaders,
	queryXAmzSignature,
	queryXAmzSecurityToken,
}

func checkQueryName(name string) error {
	if name == "" {
		return nestError(ErrInvalidQuery, "empty parameter name")
	}
	for _, q := range engineQuery {
		if strings.EqualFold(name, q) {
			return nestError(ErrInvalidQuery, "%s is set by the signer", name)
		}
	}
	return nil
}

func (r *Request) WithQuery(name, value string) *Request {
	if err := checkQueryName(name); err != nil {
		r.fail(err)
		return r
	}
	r.query.Add(name, value)
	return r
}

// WithRawQuery merges an already encoded query string into the request.
func (r *Request) WithRawQuery(rawQuery string) *Request {
	values, err := parseQuery(rawQuery)
	if err != nil {
		r.fail(err)
		return r
	}
	for k := range values {
		if err = checkQueryName(k); err != nil {
			r.fail(err)
			return r
		}
	}
	for k, vs := range values {
		r.query[k] = append(r.query[k], vs...)
	}
	return r
}

func (r *Request) WithContent(c Content) *Request {
	r.content = c
	return r
}

// WithChecksum requests an x-amz-checksum-* header computed over the body.
func (r *Request) WithChecksum(a ChecksumAlgorithm) *Request {
	if !a.valid() {
		r.fail(nestError(ErrInvalidChecksumAlgorithm, "%s", a))
		return r
	}
	if !slices.Contains(r.checksums, a) {
		r.checksums = append(r.checksums, a)
	}
	return r
}

// requestState is the snapshot a single signing pass works on.
type requestState struct {
	method      Method
	bucket      string
	key         string
	header      http.Header
	query       url.Values
	body        []byte
	contentType string

	// expires marks a presigned request; rawQuery is filled in by the signer.
	expires  int64
	rawQuery string
}

func (st *requestState) presigned() bool {
	return st.expires != 0
}

func encodeHeaderValue(v string) string {
	return mime.BEncoding.Encode("UTF-8", norm.NFC.String(v))
}

func (r *Request) snapshot() (*requestState, error) {
	if r.err != nil {
		return nil, r.err
	}

	st := &requestState{
		method:      r.method,
		bucket:      r.bucket,
		key:         r.key,
		header:      make(http.Header, len(r.header)+4),
		query:       make(url.Values, len(r.query)),
		body:        slices.Clone(r.content.data),
		contentType: r.content.contentType,
	}

	for name, values := range r.header {
		for _, v := range values {
			st.header.Add(name, encodeHeaderValue(v))
		}
	}
	for name, values := range r.query {
		st.query[name] = slices.Clone(values)
	}

	if st.contentType == "" {
		st.contentType = st.header.Get(headerContentType)
	}

	for a, sum := range checksums(st.body, r.checksums) {
		st.header.Set(a.headerName(), sum)
	}

	return st, nil
}

// consume snapshots r and marks it as signed.
func (r *Request) consume() (*requestState, error) {
	if r.consumed {
		return nil, ErrRequestConsumed
	}
	st, err := r.snapshot()
	if err != nil {
		return nil, err
	}
	r.consumed = true
	return st, nil
}
