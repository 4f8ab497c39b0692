package crypto

import "testing"

var testData = []byte("hello world")

func TestSHA1Hex(t *testing.T) {
	want := "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"
	if got := SHA1Hex(testData); got != want {
		t.Errorf("SHA1Hex() = %v, want %v", got, want)
	}
	if !VerifySHA1Checksum(testData, want) {
		t.Error("VerifySHA1Checksum() should return true for valid checksum")
	}
	if VerifySHA1Checksum([]byte("hello world!"), want) {
		t.Error("VerifySHA1Checksum() should return false for modified data")
	}
}

func TestCalculateSHA256Hex(t *testing.T) {
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if got := CalculateSHA256Hex(testData); got != want {
		t.Errorf("CalculateSHA256Hex() = %v, want %v", got, want)
	}
}

func TestCanonicalizeJSON(t *testing.T) {
	got, err := CanonicalizeJSON([]byte(`{ "b": 1, "a": "x" }`))
	if err != nil {
		t.Fatalf("CanonicalizeJSON() error = %v", err)
	}
	if string(got) != `{"a":"x","b":1}` {
		t.Errorf("CanonicalizeJSON() = %s", got)
	}

	if _, err := CanonicalizeJSON([]byte(`{"a":`)); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
