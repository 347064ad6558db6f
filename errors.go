package awsign

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMethod   = errors.New("invalid method")
	ErrMissingBucket   = errors.New("missing bucket")
	ErrInvalidHeader   = errors.New("invalid header")
	ErrInvalidQuery    = errors.New("invalid query")
	ErrInvalidContent  = errors.New("invalid content")
	ErrRequestConsumed = errors.New("request has already been signed")

	ErrMissingAccessKeyID     = errors.New("missing access key ID")
	ErrMissingSecretAccessKey = errors.New("missing secret access key")

	ErrNegativePresignedExpiration = errors.New("presigned expiration must be at least one second")
	ErrPresignedExpirationTooLarge = errors.New("presigned expiration must be at most seven days")

	ErrInvalidChecksumAlgorithm = errors.New("invalid checksum algorithm")
	ErrInvalidVariant           = errors.New("invalid signing variant")
	ErrInvalidEndpoint          = errors.New("invalid endpoint")
)

var preconditionErrors = []error{
	ErrInvalidMethod,
	ErrMissingBucket,
	ErrInvalidHeader,
	ErrInvalidQuery,
	ErrInvalidContent,
	ErrRequestConsumed,
	ErrMissingAccessKeyID,
	ErrMissingSecretAccessKey,
	ErrNegativePresignedExpiration,
	ErrPresignedExpirationTooLarge,
	ErrInvalidChecksumAlgorithm,
	ErrInvalidVariant,
	ErrInvalidEndpoint,
}

// IsPreconditionError reports whether err was caused by invalid input to the
// signer rather than by the remote service.
func IsPreconditionError(err error) bool {
	for _, target := range preconditionErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

type nestedError struct {
	outer error
	inner error
}

func (e *nestedError) Error() string {
	return e.outer.Error() + ": " + e.inner.Error()
}

func (e *nestedError) Unwrap() error {
	return e.inner
}

func (e *nestedError) Is(target error) bool {
	return e.outer == target
}

func nestError(outer error, format string, a ...any) error {
	return &nestedError{
		outer: outer,
		inner: fmt.Errorf(format, a...),
	}
}
