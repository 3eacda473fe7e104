package hash

import (
	"testing"

	"github.com/templatehash/platform/internal/apperr"
)

func TestDistanceIdentity(t *testing.T) {
	for _, f := range []Fingerprint{"0000000000000000", "ffffffffffffffff", "a1b2c3d4e5f60718"} {
		d, err := Distance(f, f)
		if err != nil {
			t.Fatalf("Distance(%q, %q) error: %v", f, f, err)
		}
		if d != 0 {
			t.Errorf("Distance(%q, %q) = %d, want 0", f, f, d)
		}
	}
}

func TestDistanceSymmetry(t *testing.T) {
	a := Fingerprint("a1b2c3d4e5f60718")
	b := Fingerprint("ffffffffffffffff")

	ab, err := Distance(a, b)
	if err != nil {
		t.Fatalf("Distance error: %v", err)
	}
	ba, err := Distance(b, a)
	if err != nil {
		t.Fatalf("Distance error: %v", err)
	}
	if ab != ba {
		t.Errorf("Distance(a,b) = %d, Distance(b,a) = %d, want equal", ab, ba)
	}
}

func TestDistanceBitCounts(t *testing.T) {
	tests := []struct {
		name string
		a, b Fingerprint
		want int
	}{
		{"zero bits", "0000000000000000", "0000000000000000", 0},
		{"one bit", "0000000000000000", "0000000000000001", 1},
		{"three bits", "0000000000000000", "0000000000000007", 3},
		{"seven bits", "0000000000000000", "000000000000007f", 7},
		{"one bit high word", "0000000000000000", "8000000000000000", 1},
		{"all 64 bits", "0000000000000000", "ffffffffffffffff", 64},
		{"mixed", "f0f0f0f0f0f0f0f0", "0f0f0f0f0f0f0f0f", 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Distance(tt.a, tt.b)
			if err != nil {
				t.Fatalf("Distance error: %v", err)
			}
			if d != tt.want {
				t.Errorf("Distance(%q, %q) = %d, want %d", tt.a, tt.b, d, tt.want)
			}
		})
	}
}

func TestDistanceLengthMismatch(t *testing.T) {
	_, err := Distance("0000", "000000")
	if err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
	if !apperr.IsCode(err, apperr.CodeHashLengthMismatch) {
		t.Errorf("error code = %v, want HASH_LENGTH_MISMATCH", apperr.CodeOf(err))
	}
}

func TestDistanceInvalidHex(t *testing.T) {
	_, err := Distance("zzzzzzzzzzzzzzzz", "0000000000000000")
	if err == nil {
		t.Fatal("expected error for invalid hex")
	}
	if !apperr.IsCode(err, apperr.CodeInvalidArgument) {
		t.Errorf("error code = %v, want INVALID_ARGUMENT", apperr.CodeOf(err))
	}
}

func TestIsSimilarStrictThreshold(t *testing.T) {
	// Distance is exactly 5 bits: threshold 5 must not match, 6 must.
	a := Fingerprint("0000000000000000")
	b := Fingerprint("000000000000001f")

	ok, err := IsSimilar(a, b, 5)
	if err != nil {
		t.Fatalf("IsSimilar error: %v", err)
	}
	if ok {
		t.Error("distance 5 with threshold 5 should not match (strict inequality)")
	}

	ok, err = IsSimilar(a, b, 6)
	if err != nil {
		t.Fatalf("IsSimilar error: %v", err)
	}
	if !ok {
		t.Error("distance 5 with threshold 6 should match")
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  A1B2C3D4E5F60718 "); got != "a1b2c3d4e5f60718" {
		t.Errorf("Normalize = %q", got)
	}
}

func TestValidate(t *testing.T) {
	if err := Fingerprint("").Validate(); err == nil {
		t.Error("empty fingerprint should fail validation")
	}
	if err := Fingerprint("a1b2").Validate(); err != nil {
		t.Errorf("valid fingerprint failed validation: %v", err)
	}
	if err := Fingerprint("a1b").Validate(); err == nil {
		t.Error("odd-length fingerprint should fail validation")
	}
}
