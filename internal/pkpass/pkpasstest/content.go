// Package pkpasstest provides pass content for tests.
package pkpasstest

import (
	"github.com/information-sharing-networks/passbook/internal/crypto/testutil"
	"github.com/information-sharing-networks/passbook/internal/pkpass"
)

// Icon is a placeholder icon.png
var Icon = []byte("\x89PNG\r\n\x1a\nnot really an image")

// Content returns generic pass content that passes validation once the serial number is set
func Content() *pkpass.Content {
	return &pkpass.Content{
		FormatVersion:      1,
		PassTypeIdentifier: testutil.DefaultPassTypeIdentifier,
		TeamIdentifier:     testutil.DefaultTeamIdentifier,
		OrganizationName:   "Example Org",
		Description:        "Example membership card",
		Barcode: &pkpass.Barcode{
			Format:          "PKBarcodeFormatQR",
			Message:         "MEMBER-0001",
			MessageEncoding: "iso-8859-1",
		},
		Generic: &pkpass.FieldSet{
			PrimaryFields: []pkpass.Field{{Key: "member", Label: "Member", Value: "Ada Lovelace"}},
		},
		Files: map[string][]byte{
			pkpass.IconFile: Icon,
		},
	}
}
