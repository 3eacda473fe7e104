// Package hash implements perceptual fingerprint comparison.
// A Fingerprint is the hex rendering of a fixed-length bit vector (64-bit
// pHash by default, 16 hex characters). Distances are Hamming distances
// computed bitwise via XOR and popcount.
package hash

import (
	"encoding/hex"
	"math/bits"
	"strings"

	"github.com/templatehash/platform/internal/apperr"
)

// Fingerprint is a perceptual hash rendered as a lowercase hex string.
type Fingerprint string

// BitLen returns the number of bits encoded by the fingerprint.
func (f Fingerprint) BitLen() int {
	return len(f) * 4
}

// Bytes decodes the fingerprint into raw bytes.
func (f Fingerprint) Bytes() ([]byte, error) {
	b, err := hex.DecodeString(string(f))
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.CodeInvalidArgument, "fingerprint %q is not valid hex", f)
	}
	return b, nil
}

// Validate reports whether the fingerprint is a non-empty, even-length hex string.
func (f Fingerprint) Validate() error {
	if f == "" {
		return apperr.New(apperr.CodeInvalidArgument, "fingerprint is empty")
	}
	_, err := f.Bytes()
	return err
}

// Normalize lowercases and trims a user-supplied hash string.
func Normalize(s string) Fingerprint {
	return Fingerprint(strings.ToLower(strings.TrimSpace(s)))
}

// Distance returns the Hamming distance between two fingerprints: the count
// of differing bit positions. Fingerprints of unequal bit-length are not
// comparable and produce HASH_LENGTH_MISMATCH.
func Distance(a, b Fingerprint) (int, error) {
	if a.BitLen() != b.BitLen() {
		return 0, apperr.Newf(apperr.CodeHashLengthMismatch,
			"fingerprint bit-lengths differ: %d vs %d", a.BitLen(), b.BitLen())
	}

	ab, err := a.Bytes()
	if err != nil {
		return 0, err
	}
	bb, err := b.Bytes()
	if err != nil {
		return 0, err
	}

	d := 0
	for i := range ab {
		d += bits.OnesCount8(ab[i] ^ bb[i])
	}
	return d, nil
}

// IsSimilar reports whether two fingerprints are within the threshold.
// The comparison is strict: a distance equal to the threshold is not a match.
func IsSimilar(a, b Fingerprint, threshold int) (bool, error) {
	d, err := Distance(a, b)
	if err != nil {
		return false, err
	}
	return d < threshold, nil
}
