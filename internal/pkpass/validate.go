package pkpass

import (
	"path"
	"strings"
)

const (
	// PassFile, ManifestFile and SignatureFile are generated by WriteArchive
	PassFile      = "pass.json"
	ManifestFile  = "manifest.json"
	SignatureFile = "signature"

	// IconFile is the only image Wallet requires
	IconFile = "icon.png"

	// minAuthenticationTokenLength is the shortest token Wallet accepts
	minAuthenticationTokenLength = 16
)

var reservedFiles = map[string]bool{
	PassFile:      true,
	ManifestFile:  true,
	SignatureFile: true,
}

var barcodeFormats = map[string]bool{
	"PKBarcodeFormatQR":      true,
	"PKBarcodeFormatPDF417":  true,
	"PKBarcodeFormatAztec":   true,
	"PKBarcodeFormatCode128": true,
}

// Policy controls the optional parts of content validation
type Policy struct {
	// AllowMissingBarcode accepts passes without a barcode (e.g. loyalty cards shown by number only)
	AllowMissingBarcode bool
}

// Validate checks that the content has what Wallet needs to accept the pass.
// All problems are collected and returned in one *ContentError.
func Validate(c *Content, policy Policy) error {
	if c == nil {
		return NewContentError("no content")
	}

	e := &ContentError{}

	if c.FormatVersion != 1 {
		e.add("formatVersion must be 1, got %d", c.FormatVersion)
	}
	required := []struct {
		key   string
		value string
	}{
		{"passTypeIdentifier", c.PassTypeIdentifier},
		{"teamIdentifier", c.TeamIdentifier},
		{"organizationName", c.OrganizationName},
		{"description", c.Description},
		{"serialNumber", c.SerialNumber},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			e.add("%s is missing", r.key)
		}
	}

	switch styles := c.Style(); len(styles) {
	case 1:
	case 0:
		e.add("pass style is missing (one of boardingPass, coupon, eventTicket, generic, storeCard)")
	default:
		e.add("more than one pass style set: %s", strings.Join(styles, ", "))
	}
	if c.BoardingPass != nil && c.BoardingPass.TransitType == "" {
		e.add("boardingPass.transitType is missing")
	}

	if (c.WebServiceURL == "") != (c.AuthenticationToken == "") {
		e.add("webServiceURL and authenticationToken must be set together")
	}
	if c.AuthenticationToken != "" && len(c.AuthenticationToken) < minAuthenticationTokenLength {
		e.add("authenticationToken must be at least %d characters", minAuthenticationTokenLength)
	}

	if !c.HasBarcode() && !policy.AllowMissingBarcode {
		e.add("barcode is missing")
	}
	barcodes := c.Barcodes
	if c.Barcode != nil {
		barcodes = append([]Barcode{*c.Barcode}, barcodes...)
	}
	for _, b := range barcodes {
		if !barcodeFormats[b.Format] {
			e.add("unsupported barcode format %q", b.Format)
		}
		if b.Message == "" {
			e.add("barcode message is missing")
		}
		if b.MessageEncoding == "" {
			e.add("barcode messageEncoding is missing")
		}
	}

	if _, ok := c.Files[IconFile]; !ok {
		e.add("%s is missing", IconFile)
	}
	for name := range c.Files {
		if err := checkFileName(name); err != "" {
			e.add("%s", err)
		}
	}

	if len(e.Problems) > 0 {
		return e
	}
	return nil
}

// checkFileName returns a description of what is wrong with an archive path, or "" when it is acceptable
func checkFileName(name string) string {
	switch {
	case name == "":
		return "empty file name"
	case reservedFiles[name]:
		return name + " is generated and cannot be supplied"
	case strings.Contains(name, `\`):
		return name + ": file names must use forward slashes"
	case path.IsAbs(name), path.Clean(name) != name, name == ".", strings.HasPrefix(name, "../"), name == "..":
		return name + ": file names must be clean relative paths"
	}
	return ""
}
