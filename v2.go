package awsign

import (
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
)

// subresources lists the query parameters that are part of the legacy
// canonical resource. The value tells whether the parameter's value is
// URI-encoded.
var subresources = map[string]bool{
	"acl":                          true,
	"delete":                       true,
	"lifecycle":                    true,
	"location":                     true,
	"logging":                      true,
	"notification":                 true,
	"partNumber":                   true,
	"policy":                       true,
	"requestPayment":               true,
	"uploadId":                     true,
	"uploads":                      true,
	"versionId":                    true,
	"versioning":                   true,
	"versions":                     true,
	"website":                      true,
	"response-content-type":        false,
	"response-content-language":    false,
	"response-expires":             false,
	"response-cache-control":       false,
	"response-content-disposition": false,
	"response-content-encoding":    false,
}

func defaultContentTypeV2(m Method) string {
	switch m {
	case MethodPut, MethodPost:
		return contentTypeOctetStream
	default:
		return ""
	}
}

func canonicalResourceV2(bucket, key string, query url.Values) string {
	b := new(strings.Builder)

	b.WriteByte('/')
	b.WriteString(strings.ToLower(bucket))
	b.WriteByte('/')
	b.WriteString(uriEncode(key, true))

	params := slices.Sorted(maps.Keys(query))

	first := true
	for _, p := range params {
		encode, ok := subresources[p]
		if !ok {
			continue
		}
		values := slices.Clone(query[p])
		slices.Sort(values)
		for _, v := range values {
			if first {
				b.WriteByte('?')
				first = false
			} else {
				b.WriteByte('&')
			}
			b.WriteString(p)
			if v == "" {
				continue
			}
			b.WriteByte('=')
			if encode {
				b.WriteString(uriEncode(v, false))
			} else {
				b.WriteString(v)
			}
		}
	}

	return b.String()
}

func canonicalAmzHeadersV2(h http.Header) string {
	var names []string
	for name := range h {
		if n := strings.ToLower(name); strings.HasPrefix(n, xAmzHeaderPrefix) {
			names = append(names, n)
		}
	}
	slices.Sort(names)

	b := new(strings.Builder)
	for _, name := range names {
		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(canonicalHeaderValue(h.Values(name)))
		b.WriteByte(lf)
	}

	return b.String()
}

func stringToSignV2(method Method, contentMD5, contentType, date string, h http.Header, resource string) string {
	b := new(strings.Builder)

	b.WriteString(string(method))
	b.WriteByte(lf)
	b.WriteString(contentMD5)
	b.WriteByte(lf)
	b.WriteString(contentType)
	b.WriteByte(lf)
	b.WriteString(date)
	b.WriteByte(lf)
	b.WriteString(canonicalAmzHeadersV2(h))
	b.WriteString(resource)

	return b.String()
}

type v2Signer struct{}

func (v2 *v2Signer) canonicalize(st *requestState, creds Credentials, sc signingContext) (CanonicalForm, error) {
	date := sc.time.Format(http.TimeFormat)
	st.header.Set(headerDate, date)

	if creds.SessionToken != "" {
		st.header.Set(headerXAmzSecurityToken, creds.SessionToken)
	}

	md5 := contentMD5(st.body)
	if md5 != "" {
		st.header.Set(headerContentMD5, md5)
	} else {
		st.header.Del(headerContentMD5)
	}

	contentType := st.contentType
	if contentType == "" {
		contentType = defaultContentTypeV2(st.method)
	}
	if contentType != "" {
		st.header.Set(headerContentType, contentType)
	}

	resource := canonicalResourceV2(st.bucket, st.key, st.query)

	return CanonicalForm{
		Variant: VariantV2,
		Request: stringToSignV2(st.method, md5, contentType, date, st.header, resource),
	}, nil
}

func (v2 *v2Signer) authorize(st *requestState, creds Credentials, _ signingContext, cf CanonicalForm) error {
	signature, err := calculateSignatureV2(cf.Request, creds.SecretAccessKey)
	if err != nil {
		return err
	}

	st.header.Set(headerAuthorization, authorizationV2(creds.AccessKeyID, signature))
	st.rawQuery = canonicalQueryString(st.query)

	return nil
}
