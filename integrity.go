package awsign

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/base64"
	"hash"
	"hash/crc32"
	"strconv"
	"strings"

	"github.com/minio/crc64nvme"
)

// ChecksumAlgorithm selects an additional body checksum that is sent (and
// signed) as an x-amz-checksum-* header.
type ChecksumAlgorithm int

const (
	AlgorithmCRC32 ChecksumAlgorithm = iota
	AlgorithmCRC32C
	AlgorithmCRC64NVME
	AlgorithmSHA1
	AlgorithmSHA256
	algorithmMD5
)

func (a ChecksumAlgorithm) valid() bool {
	return a >= AlgorithmCRC32 && a <= AlgorithmSHA256
}

func (a ChecksumAlgorithm) String() string {
	switch a {
	case AlgorithmCRC32:
		return "crc32"
	case AlgorithmCRC32C:
		return "crc32c"
	case AlgorithmCRC64NVME:
		return "crc64nvme"
	case AlgorithmSHA1:
		return "sha1"
	case AlgorithmSHA256:
		return "sha256"
	case algorithmMD5:
		return "md5"
	default:
		return strconv.Itoa(int(a))
	}
}

// ParseChecksumAlgorithm accepts the names returned by String.
func ParseChecksumAlgorithm(s string) (ChecksumAlgorithm, error) {
	for a := AlgorithmCRC32; a.valid(); a++ {
		if strings.EqualFold(s, a.String()) {
			return a, nil
		}
	}
	return 0, nestError(ErrInvalidChecksumAlgorithm, "%q", s)
}

func (a ChecksumAlgorithm) headerName() string {
	return "X-Amz-Checksum-" + a.String()
}

func (a ChecksumAlgorithm) newHash() hash.Hash {
	switch a {
	case AlgorithmCRC32:
		return crc32.NewIEEE()
	case AlgorithmCRC32C:
		return crc32.New(crc32.MakeTable(crc32.Castagnoli))
	case AlgorithmCRC64NVME:
		return crc64nvme.New()
	case AlgorithmSHA1:
		return sha1.New()
	case AlgorithmSHA256:
		return sha256.New()
	case algorithmMD5:
		return md5.New()
	default:
		return nil
	}
}

// checksums returns the base64 digest of body for every requested algorithm.
func checksums(body []byte, algorithms []ChecksumAlgorithm) map[ChecksumAlgorithm]string {
	hashes := make(map[ChecksumAlgorithm]hash.Hash, len(algorithms))
	for _, a := range algorithms {
		if _, ok := hashes[a]; ok {
			continue
		}
		hashes[a] = a.newHash()
	}

	sums := make(map[ChecksumAlgorithm]string, len(hashes))
	for a, h := range hashes {
		h.Write(body)
		sums[a] = base64.StdEncoding.EncodeToString(h.Sum(nil))
	}

	return sums
}

// contentMD5 returns the base64 MD5 of body, or an empty string for an empty
// body.
func contentMD5(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	return checksums(body, []ChecksumAlgorithm{algorithmMD5})[algorithmMD5]
}
