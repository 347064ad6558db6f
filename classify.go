package awsign

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
)

var errNoRootElement = errors.New("no root element")

// Response is what the transport returned for a request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Exchange is the raw request/response pair attached to a ProtocolError.
type Exchange struct {
	Method        string
	URL           string
	RequestHeader http.Header
	Response      Response
}

// ProtocolError is a non-2xx response from the remote service.
type ProtocolError struct {
	StatusCode int
	Code       string
	Message    string
	// Fields holds every child element of the XML error body keyed by its
	// name with the first letter lower-cased.
	Fields   map[string]string
	Exchange Exchange

	parseErr error
}

func (e *ProtocolError) Error() string {
	message := e.Message
	if message == "" {
		message = statusText(e.StatusCode)
	}
	if e.Code == "" {
		return "protocol error: " + message
	}
	return "protocol error: " + e.Code + ": " + message
}

func statusText(status int) string {
	return fmt.Sprintf("%d %s", status, http.StatusText(status))
}

// Unwrap returns the reason the error body could not be parsed, if any.
func (e *ProtocolError) Unwrap() error {
	return e.parseErr
}

// ClassifyError returns nil for a successful exchange and a *ProtocolError
// otherwise. It never interprets the error code.
func ClassifyError(ex Exchange) error {
	status := ex.Response.StatusCode
	if status <= 299 {
		return nil
	}

	fields, err := parseErrorBody(ex.Response.Body)
	if err != nil {
		return &ProtocolError{
			StatusCode: status,
			Message:    statusText(status) + ": unparseable body",
			Fields:     map[string]string{},
			Exchange:   ex,
			parseErr:   err,
		}
	}

	return &ProtocolError{
		StatusCode: status,
		Code:       fields["code"],
		Message:    fields["message"],
		Fields:     fields,
		Exchange:   ex,
	}
}

func errorFieldName(element string) string {
	r, size := utf8.DecodeRuneInString(element)
	if r == utf8.RuneError {
		return element
	}
	return string(unicode.ToLower(r)) + element[size:]
}

// parseErrorBody reads the text of each direct child of the root element. A
// later element wins over an earlier one with the same field name.
func parseErrorBody(body []byte) (map[string]string, error) {
	d := xml.NewDecoder(bytes.NewReader(body))
	d.CharsetReader = charset.NewReaderLabel

	var (
		fields = make(map[string]string)
		inRoot bool
	)

	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			if !inRoot {
				return nil, errNoRootElement
			}
			return nil, io.ErrUnexpectedEOF
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if !inRoot {
				inRoot = true
				continue
			}
			var value string
			if err = d.DecodeElement(&value, &t); err != nil {
				return nil, err
			}
			fields[errorFieldName(t.Name.Local)] = value
		case xml.EndElement:
			return fields, nil
		}
	}
}

// FormatError renders e with the exchange that produced it.
func FormatError(e *ProtocolError) string {
	b := new(strings.Builder)

	fmt.Fprintf(b, "%s (status %d)\n", e.Error(), e.StatusCode)

	for _, name := range slices.Sorted(maps.Keys(e.Fields)) {
		fmt.Fprintf(b, "  %s: %s\n", name, e.Fields[name])
	}
	if e.parseErr != nil {
		fmt.Fprintf(b, "  parse error: %v\n", e.parseErr)
	}

	fmt.Fprintf(b, "> %s %s\n", e.Exchange.Method, e.Exchange.URL)
	writeHeader(b, "> ", e.Exchange.RequestHeader)
	fmt.Fprintf(b, "< %d\n", e.Exchange.Response.StatusCode)
	writeHeader(b, "< ", e.Exchange.Response.Header)
	if len(e.Exchange.Response.Body) > 0 {
		b.WriteString("<\n")
		b.Write(e.Exchange.Response.Body)
		b.WriteByte(lf)
	}

	return b.String()
}

func writeHeader(b *strings.Builder, prefix string, h http.Header) {
	for _, name := range slices.Sorted(maps.Keys(h)) {
		for _, v := range h[name] {
			fmt.Fprintf(b, "%s%s: %s\n", prefix, name, v)
		}
	}
}
