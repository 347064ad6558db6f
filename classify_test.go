package awsign

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/zeebo/assert"
)

func classify(status int, body string) *ProtocolError {
	err := ClassifyError(Exchange{
		Method: http.MethodGet,
		URL:    "https://examplebucket.s3.amazonaws.com/test.txt",
		Response: Response{
			StatusCode: status,
			Body:       []byte(body),
		},
	})
	if err == nil {
		return nil
	}
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		panic(err)
	}
	return pe
}

func TestClassifyError(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		for _, status := range []int{200, 204, 299} {
			assert.NoError(t, ClassifyError(Exchange{Response: Response{StatusCode: status}}))
		}
	})
	t.Run("NoSuchBucket", func(t *testing.T) {
		pe := classify(404, "<Error><Code>NoSuchBucket</Code><Message>x</Message></Error>")
		assert.Equal(t, 404, pe.StatusCode)
		assert.Equal(t, "NoSuchBucket", pe.Code)
		assert.Equal(t, "x", pe.Message)
		assert.Equal(t, "protocol error: NoSuchBucket: x", pe.Error())
		assert.NoError(t, pe.Unwrap())
		assert.False(t, IsPreconditionError(pe))
	})
	t.Run("all fields", func(t *testing.T) {
		pe := classify(403, `<?xml version="1.0" encoding="UTF-8"?>
<Error>
  <Code>SignatureDoesNotMatch</Code>
  <Message>The request signature we calculated does not match the signature you provided.</Message>
  <StringToSign>AWS4-HMAC-SHA256</StringToSign>
  <RequestId>4442587FB7D0A2F9</RequestId>
</Error>`)
		assert.Equal(t, "SignatureDoesNotMatch", pe.Code)
		assert.Equal(t, "AWS4-HMAC-SHA256", pe.Fields["stringToSign"])
		assert.Equal(t, "4442587FB7D0A2F9", pe.Fields["requestId"])
		assert.Equal(t, 4, len(pe.Fields))
	})
	t.Run("later element wins", func(t *testing.T) {
		pe := classify(400, "<Error><Code>First</Code><Code>Second</Code></Error>")
		assert.Equal(t, "Second", pe.Code)
		assert.Equal(t, "", pe.Message)
	})
	t.Run("empty error element", func(t *testing.T) {
		for _, body := range []string{"<Error/>", "<Error></Error>"} {
			pe := classify(403, body)
			assert.Equal(t, 403, pe.StatusCode)
			assert.Equal(t, "", pe.Code)
			assert.Equal(t, "protocol error: 403 Forbidden", pe.Error())
		}

		pe := classify(503, "<Error><Code>SlowDown</Code></Error>")
		assert.Equal(t, "protocol error: SlowDown: 503 Service Unavailable", pe.Error())
	})
	t.Run("declared charset", func(t *testing.T) {
		pe := classify(403, "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><Error><Code>AccessDenied</Code><Message>Caf\xe9</Message></Error>")
		assert.Equal(t, "AccessDenied", pe.Code)
		assert.Equal(t, "Café", pe.Message)
	})
	t.Run("unparseable", func(t *testing.T) {
		for _, body := range []string{"", "not xml", "<Error><Code>Truncated</Code>"} {
			pe := classify(500, body)
			assert.Equal(t, 500, pe.StatusCode)
			assert.Equal(t, "", pe.Code)
			assert.Equal(t, "500 Internal Server Error: unparseable body", pe.Message)
			assert.Error(t, pe.Unwrap())
		}
	})
}

func TestFormatError(t *testing.T) {
	pe := classify(404, "<Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>test.txt</Key></Error>")
	pe.Exchange.RequestHeader = http.Header{"X-Amz-Date": {"20130524T000000Z"}}
	pe.Exchange.Response.Header = http.Header{"Content-Type": {"application/xml"}}

	out := FormatError(pe)

	for _, line := range []string{
		"protocol error: NoSuchKey: The specified key does not exist. (status 404)",
		"  code: NoSuchKey",
		"  key: test.txt",
		"> GET https://examplebucket.s3.amazonaws.com/test.txt",
		"> X-Amz-Date: 20130524T000000Z",
		"< 404",
		"< Content-Type: application/xml",
	} {
		assert.That(t, strings.Contains(out, line+"\n"))
	}
	assert.That(t, strings.HasSuffix(out, "<Key>test.txt</Key></Error>\n"))
}

func TestErrorFieldName(t *testing.T) {
	assert.Equal(t, "requestId", errorFieldName("RequestId"))
	assert.Equal(t, "hostId", errorFieldName("hostId"))
	assert.Equal(t, "", errorFieldName(""))
	assert.Equal(t, "éclair", errorFieldName("Éclair"))
}
