package awsign

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
)

const v2SigningAlgorithm = "AWS"

type signatureV2 []byte

func (s signatureV2) String() string {
	return base64.StdEncoding.EncodeToString(s)
}

func hmacSHA1(key []byte, s string) []byte {
	h := hmac.New(sha1.New, key)
	h.Write([]byte(s))
	return h.Sum(nil)
}

// calculateSignatureV2 signs with the secret access key itself; the legacy
// variant has no key derivation.
func calculateSignatureV2(stringToSign string, secretAccessKey string) (signatureV2, error) {
	if secretAccessKey == "" {
		return nil, ErrMissingSecretAccessKey
	}
	return hmacSHA1([]byte(secretAccessKey), stringToSign), nil
}

func authorizationV2(accessKeyID string, signature signatureV2) string {
	return v2SigningAlgorithm + " " + accessKeyID + ":" + signature.String()
}
