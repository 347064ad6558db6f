package awsign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

const (
	awsISO8601Format = "20060102T150405Z"
	awsDateFormat    = "20060102"

	v4SigningAlgorithm = "AWS4-HMAC-SHA256"
	v4ScopeTerminator  = "aws4_request"
	v4KeyPrefix        = "AWS4"

	emptySHA256     = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	unsignedPayload = "UNSIGNED-PAYLOAD"

	// seven days
	maxPresignedExpiration = 604800 * time.Second
)

type signatureV4 []byte

func (s signatureV4) String() string {
	return hex.EncodeToString(s)
}

func sha256Hash(data []byte) []byte {
	h := sha256.New()
	h.Write(data)
	return h.Sum(nil)
}

func sha256Hex(data []byte) string {
	return hex.EncodeToString(sha256Hash(data))
}

func hmacSHA256(key []byte, s string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(s))
	return h.Sum(nil)
}

// signingKeyHMACSHA256 derives the current-variant signing key. Each step uses
// the raw output of the previous one as its key.
func signingKeyHMACSHA256(key, date, region, service string) []byte {
	dateKey := hmacSHA256([]byte(v4KeyPrefix+key), date)
	dateRegionKey := hmacSHA256(dateKey, region)
	dateRegionServiceKey := hmacSHA256(dateRegionKey, service)
	return hmacSHA256(dateRegionServiceKey, v4ScopeTerminator)
}

func deriveSigningKey(secretAccessKey string, s scope) ([]byte, error) {
	if secretAccessKey == "" {
		return nil, ErrMissingSecretAccessKey
	}
	return signingKeyHMACSHA256(secretAccessKey, s.dateString(), s.region, s.service), nil
}

type scope struct {
	date    time.Time
	region  string
	service string
}

func (s scope) dateString() string {
	return s.date.UTC().Format(awsDateFormat)
}

func (s scope) String() string {
	return s.dateString() + "/" + s.region + "/" + s.service + "/" + v4ScopeTerminator
}

func (s scope) credential(accessKeyID string) string {
	return accessKeyID + "/" + s.String()
}

func stringToSignV4(s scope, canonicalRequest string) string {
	b := new(strings.Builder)

	b.WriteString(v4SigningAlgorithm)
	b.WriteByte(lf)
	b.WriteString(s.date.UTC().Format(awsISO8601Format))
	b.WriteByte(lf)
	b.WriteString(s.String())
	b.WriteByte(lf)
	b.WriteString(sha256Hex([]byte(canonicalRequest)))

	return b.String()
}

func calculateSignatureV4(stringToSign string, signingKey []byte) signatureV4 {
	return hmacSHA256(signingKey, stringToSign)
}

func authorizationV4(accessKeyID string, s scope, signedHeaders []string, signature signatureV4) string {
	b := new(strings.Builder)

	b.WriteString(v4SigningAlgorithm)
	b.WriteString(" Credential=")
	b.WriteString(s.credential(accessKeyID))
	b.WriteString(", SignedHeaders=")
	b.WriteString(strings.Join(signedHeaders, ";"))
	b.WriteString(", Signature=")
	b.WriteString(signature.String())

	return b.String()
}
