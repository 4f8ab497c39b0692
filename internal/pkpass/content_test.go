package pkpass

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestContent_UnknownKeysArePreserved(t *testing.T) {
	input := `{
		"formatVersion": 1,
		"passTypeIdentifier": "pass.org.example",
		"serialNumber": "7",
		"nfc": {"message": "abc", "encryptionPublicKey": "xyz"},
		"sharingProhibited": true,
		"generic": {"primaryFields": [{"key": "k", "value": 3}]}
	}`

	var c Content
	if err := json.Unmarshal([]byte(input), &c); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if c.PassTypeIdentifier != "pass.org.example" || c.SerialNumber != "7" {
		t.Errorf("known fields not decoded: %+v", c)
	}
	if c.Generic == nil || len(c.Generic.PrimaryFields) != 1 {
		t.Fatalf("generic field set not decoded: %+v", c.Generic)
	}
	if len(c.Extra) != 2 {
		t.Fatalf("Extra has %d keys, want 2 (nfc, sharingProhibited): %v", len(c.Extra), c.Extra)
	}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var got, want map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(input), &want); err != nil {
		t.Fatal(err)
	}
	// organizationName etc. are always written, even when empty
	for _, k := range []string{"teamIdentifier", "organizationName", "description"} {
		want[k] = ""
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("pass.json mismatch (-want +got):\n%s", diff)
	}
}

func TestContent_ExtraCannotOverrideKnownKeys(t *testing.T) {
	c := Content{
		FormatVersion: 1,
		SerialNumber:  "42",
		Extra:         map[string]json.RawMessage{"serialNumber": json.RawMessage(`"spoofed"`)},
	}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(out, &got); err != nil {
		t.Fatal(err)
	}
	if got["serialNumber"] != "42" {
		t.Errorf("serialNumber = %v, want 42", got["serialNumber"])
	}
}

func TestContent_UnmarshalKeepsFiles(t *testing.T) {
	c := Content{Files: map[string][]byte{"icon.png": []byte("x")}}
	if err := json.Unmarshal([]byte(`{"formatVersion":1}`), &c); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Files["icon.png"]; !ok {
		t.Error("Files should survive decoding pass.json")
	}
}
