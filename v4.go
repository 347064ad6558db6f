package awsign

import (
	"cmp"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	queryXAmzAlgorithm     = "X-Amz-Algorithm"
	queryXAmzCredential    = "X-Amz-Credential"
	queryXAmzDate          = "X-Amz-Date"
	queryXAmzExpires       = "X-Amz-Expires"
	queryXAmzSignedHeaders = "X-Amz-SignedHeaders"
	queryXAmzSignature     = "X-Amz-Signature"
	queryXAmzSecurityToken = "X-Amz-Security-Token"

	lf = '\n'
)

// ignoredHeaders are managed by the transport and never signed.
var ignoredHeaders = map[string]bool{
	"authorization":     true,
	"connection":        true,
	"content-length":    true,
	"expect":            true,
	"transfer-encoding": true,
	"user-agent":        true,
	"x-amzn-trace-id":   true,
}

type queryPair struct {
	key   string
	value string
}

// canonicalQueryString encodes keys and values and sorts the pairs by encoded
// key, then by encoded value.
func canonicalQueryString(query url.Values) string {
	var pairs []queryPair
	for k, vs := range query {
		ek := uriEncode(k, false)
		for _, v := range vs {
			pairs = append(pairs, queryPair{key: ek, value: uriEncode(v, false)})
		}
	}

	slices.SortFunc(pairs, func(a, b queryPair) int {
		if c := cmp.Compare(a.key, b.key); c != 0 {
			return c
		}
		return cmp.Compare(a.value, b.value)
	})

	b := new(strings.Builder)
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.key)
		b.WriteByte('=')
		b.WriteString(p.value)
	}

	return b.String()
}

// parseQuery splits rawQuery on '&' and then on the first '=' and
// percent-decodes both halves. A '+' stays a literal plus. A parameter without
// '=' gets an empty value.
func parseQuery(rawQuery string) (url.Values, error) {
	values := make(url.Values)
	for part := range strings.SplitSeq(rawQuery, "&") {
		if part == "" {
			continue
		}
		rawKey, rawValue, _ := strings.Cut(part, "=")
		key, err := url.PathUnescape(rawKey)
		if err != nil {
			return nil, nestError(ErrInvalidQuery, "unable to decode %q: %w", rawKey, err)
		}
		value, err := url.PathUnescape(rawValue)
		if err != nil {
			return nil, nestError(ErrInvalidQuery, "unable to decode %q: %w", rawValue, err)
		}
		if key == "" {
			return nil, nestError(ErrInvalidQuery, "empty parameter name in %q", part)
		}
		values[key] = append(values[key], value)
	}
	return values, nil
}

// signedHeaderNames lists every signable header of h plus host, lower-cased
// and sorted.
func signedHeaderNames(h http.Header) []string {
	names := []string{headerHost}
	for name := range h {
		n := strings.ToLower(name)
		if ignoredHeaders[n] || n == headerHost {
			continue
		}
		names = append(names, n)
	}
	slices.Sort(names)
	return slices.Compact(names)
}

func canonicalHeadersV4(host string, h http.Header, names []string) string {
	b := new(strings.Builder)
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		if name == headerHost {
			b.WriteString(stripExcessSpaces(host))
		} else {
			b.WriteString(canonicalHeaderValue(h.Values(name)))
		}
		b.WriteByte(lf)
	}
	return b.String()
}

func payloadSHA256(body []byte) string {
	if len(body) == 0 {
		return emptySHA256
	}
	return sha256Hex(body)
}

func validatePresignedExpiration(expires time.Duration) (int64, error) {
	if expires < time.Second {
		return 0, nestError(ErrNegativePresignedExpiration, "got %s", expires)
	}
	if expires > maxPresignedExpiration {
		return 0, nestError(ErrPresignedExpirationTooLarge, "got %s", expires)
	}
	return int64(expires / time.Second), nil
}

type v4Signer struct {
	endpoint endpoint
}

func (v4 *v4Signer) scope(sc signingContext) scope {
	return scope{
		date:    sc.time,
		region:  sc.region,
		service: sc.service,
	}
}

// prepare writes the date, payload hash and token either into the headers or,
// for presigned requests, into the query. It returns the payload hash.
func (v4 *v4Signer) prepare(st *requestState, creds Credentials, sc signingContext) string {
	s := v4.scope(sc)
	dateTime := sc.time.Format(awsISO8601Format)

	if st.contentType != "" {
		st.header.Set(headerContentType, st.contentType)
	}

	if !st.presigned() {
		payloadHash := payloadSHA256(st.body)
		st.header.Set(headerXAmzDate, dateTime)
		st.header.Set(headerXAmzContentSha256, payloadHash)
		if creds.SessionToken != "" {
			st.header.Set(headerXAmzSecurityToken, creds.SessionToken)
		}
		return payloadHash
	}

	payloadHash := unsignedPayload
	if len(st.body) > 0 {
		payloadHash = payloadSHA256(st.body)
		st.header.Set(headerXAmzContentSha256, payloadHash)
	}

	st.query.Set(queryXAmzAlgorithm, v4SigningAlgorithm)
	st.query.Set(queryXAmzCredential, s.credential(creds.AccessKeyID))
	st.query.Set(queryXAmzDate, dateTime)
	st.query.Set(queryXAmzExpires, strconv.FormatInt(st.expires, 10))
	if creds.SessionToken != "" {
		st.query.Set(queryXAmzSecurityToken, creds.SessionToken)
	}
	st.query.Set(queryXAmzSignedHeaders, strings.Join(signedHeaderNames(st.header), ";"))

	return payloadHash
}

func (v4 *v4Signer) canonicalize(st *requestState, creds Credentials, sc signingContext) (CanonicalForm, error) {
	payloadHash := v4.prepare(st, creds, sc)

	names := signedHeaderNames(st.header)
	query := canonicalQueryString(st.query)

	b := new(strings.Builder)
	b.WriteString(string(st.method))
	b.WriteByte(lf)
	b.WriteString(uriEncode(v4.endpoint.pathFor(st.bucket, st.key), true))
	b.WriteByte(lf)
	b.WriteString(query)
	b.WriteByte(lf)
	b.WriteString(canonicalHeadersV4(v4.endpoint.hostFor(st.bucket), st.header, names))
	b.WriteByte(lf)
	b.WriteString(strings.Join(names, ";"))
	b.WriteByte(lf)
	b.WriteString(payloadHash)

	return CanonicalForm{
		Variant:       VariantV4,
		Request:       b.String(),
		SignedHeaders: names,
		PayloadHash:   payloadHash,
		query:         query,
	}, nil
}

func (v4 *v4Signer) authorize(st *requestState, creds Credentials, sc signingContext, cf CanonicalForm) error {
	s := v4.scope(sc)

	key, err := deriveSigningKey(creds.SecretAccessKey, s)
	if err != nil {
		return err
	}

	signature := calculateSignatureV4(stringToSignV4(s, cf.Request), key)

	if st.presigned() {
		st.rawQuery = cf.query + "&" + queryXAmzSignature + "=" + signature.String()
		return nil
	}

	st.header.Set(headerAuthorization, authorizationV4(creds.AccessKeyID, s, cf.SignedHeaders, signature))
	st.rawQuery = cf.query

	return nil
}
