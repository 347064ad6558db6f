package awsign

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
)

const (
	headerInvocationID = "Amz-Sdk-Invocation-Id"

	redacted = "REDACTED"
)

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Execute sends r through d and reads the whole response. A response with a
// status above 299 is returned together with a *ProtocolError.
//
// Execute adds an Amz-Sdk-Invocation-Id header after signing. It is not part
// of the signature.
func Execute(ctx context.Context, d Doer, r *SignedRequest) (*Response, error) {
	req, err := r.HTTPRequest(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set(headerInvocationID, uuid.NewString())

	resp, err := d.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	out := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}

	return out, ClassifyError(Exchange{
		Method:        req.Method,
		URL:           req.URL.String(),
		RequestHeader: exchangeHeader(req.Header),
		Response:      *out,
	})
}

// exchangeHeader copies h without credentials.
func exchangeHeader(h http.Header) http.Header {
	c := h.Clone()
	c.Del(headerAuthorization)
	if c.Get(headerXAmzSecurityToken) != "" {
		c.Set(headerXAmzSecurityToken, redacted)
	}
	return c
}
