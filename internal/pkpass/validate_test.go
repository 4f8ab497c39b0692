package pkpass_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/information-sharing-networks/passbook/internal/pkpass"
	"github.com/information-sharing-networks/passbook/internal/pkpass/pkpasstest"
)

func TestValidate(t *testing.T) {
	valid := func() *pkpass.Content {
		c := pkpasstest.Content()
		c.SerialNumber = "1"
		c.WebServiceURL = "https://passes.example.org/passbook"
		c.AuthenticationToken = "0b5a8e2c-8c1f-4d0e-9d3a-1f2e3d4c5b6a"
		return c
	}

	tests := []struct {
		name        string
		modify      func(c *pkpass.Content)
		policy      pkpass.Policy
		wantProblem string
	}{
		{
			name:   "valid content",
			modify: func(c *pkpass.Content) {},
		},
		{
			name:        "missing barcode is rejected by default",
			modify:      func(c *pkpass.Content) { c.Barcode = nil },
			wantProblem: "barcode is missing",
		},
		{
			name:   "missing barcode allowed by policy",
			modify: func(c *pkpass.Content) { c.Barcode = nil },
			policy: pkpass.Policy{AllowMissingBarcode: true},
		},
		{
			name: "barcodes array satisfies the barcode requirement",
			modify: func(c *pkpass.Content) {
				c.Barcodes = []pkpass.Barcode{*c.Barcode}
				c.Barcode = nil
			},
		},
		{
			name:        "unsupported barcode format",
			modify:      func(c *pkpass.Content) { c.Barcode.Format = "PKBarcodeFormatEAN13" },
			wantProblem: "unsupported barcode format",
		},
		{
			name:        "missing organization name",
			modify:      func(c *pkpass.Content) { c.OrganizationName = " " },
			wantProblem: "organizationName is missing",
		},
		{
			name:        "wrong format version",
			modify:      func(c *pkpass.Content) { c.FormatVersion = 2 },
			wantProblem: "formatVersion must be 1",
		},
		{
			name:        "no style",
			modify:      func(c *pkpass.Content) { c.Generic = nil },
			wantProblem: "pass style is missing",
		},
		{
			name:        "two styles",
			modify:      func(c *pkpass.Content) { c.Coupon = &pkpass.FieldSet{} },
			wantProblem: "more than one pass style",
		},
		{
			name: "boarding pass without transit type",
			modify: func(c *pkpass.Content) {
				c.Generic = nil
				c.BoardingPass = &pkpass.FieldSet{}
			},
			wantProblem: "transitType is missing",
		},
		{
			name:        "token without web service",
			modify:      func(c *pkpass.Content) { c.WebServiceURL = "" },
			wantProblem: "must be set together",
		},
		{
			name:        "short token",
			modify:      func(c *pkpass.Content) { c.AuthenticationToken = "short" },
			wantProblem: "at least 16 characters",
		},
		{
			name:        "missing icon",
			modify:      func(c *pkpass.Content) { delete(c.Files, pkpass.IconFile) },
			wantProblem: "icon.png is missing",
		},
		{
			name:        "reserved file name",
			modify:      func(c *pkpass.Content) { c.Files[pkpass.ManifestFile] = []byte("{}") },
			wantProblem: "is generated and cannot be supplied",
		},
		{
			name:        "path traversal",
			modify:      func(c *pkpass.Content) { c.Files["../etc/passwd"] = []byte("x") },
			wantProblem: "clean relative paths",
		},
		{
			name:   "localization directory",
			modify: func(c *pkpass.Content) { c.Files["en.lproj/pass.strings"] = []byte(`"a" = "b";`) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.modify(c)

			err := pkpass.Validate(c, tt.policy)
			if tt.wantProblem == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var contentErr *pkpass.ContentError
			if !errors.As(err, &contentErr) {
				t.Fatalf("expected *ContentError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantProblem) {
				t.Errorf("error %q does not mention %q", err, tt.wantProblem)
			}
		})
	}
}

func TestValidate_CollectsAllProblems(t *testing.T) {
	err := pkpass.Validate(&pkpass.Content{}, pkpass.Policy{})

	var contentErr *pkpass.ContentError
	if !errors.As(err, &contentErr) {
		t.Fatalf("expected *ContentError, got %v", err)
	}
	if len(contentErr.Problems) < 5 {
		t.Errorf("expected every problem to be reported, got %v", contentErr.Problems)
	}
}
