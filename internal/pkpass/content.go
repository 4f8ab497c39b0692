package pkpass

import (
	"encoding/json"
	"reflect"
	"strings"
)

// Barcode is a pass.json barcode dictionary
type Barcode struct {
	Format          string `json:"format"`
	Message         string `json:"message"`
	MessageEncoding string `json:"messageEncoding"`
	AltText         string `json:"altText,omitempty"`
}

// Field is one entry in a field set (headerFields, primaryFields, ...)
type Field struct {
	Key           string `json:"key"`
	Label         string `json:"label,omitempty"`
	Value         any    `json:"value"`
	ChangeMessage string `json:"changeMessage,omitempty"`
	TextAlignment string `json:"textAlignment,omitempty"`
}

// FieldSet holds the fields of one pass style
type FieldSet struct {
	TransitType     string  `json:"transitType,omitempty"`
	HeaderFields    []Field `json:"headerFields,omitempty"`
	PrimaryFields   []Field `json:"primaryFields,omitempty"`
	SecondaryFields []Field `json:"secondaryFields,omitempty"`
	AuxiliaryFields []Field `json:"auxiliaryFields,omitempty"`
	BackFields      []Field `json:"backFields,omitempty"`
}

// Location is a place where the pass is relevant
type Location struct {
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Altitude     *float64 `json:"altitude,omitempty"`
	RelevantText string   `json:"relevantText,omitempty"`
}

// Content is the content of a pass: the pass.json dictionary plus the other files
// (images, localization directories) that go into the archive.
//
// Keys in pass.json that are not modelled here are kept in Extra and written back unchanged,
// so origins can use any pass.json key without this package knowing about it.
type Content struct {
	FormatVersion       int    `json:"formatVersion"`
	PassTypeIdentifier  string `json:"passTypeIdentifier"`
	TeamIdentifier      string `json:"teamIdentifier"`
	OrganizationName    string `json:"organizationName"`
	Description         string `json:"description"`
	SerialNumber        string `json:"serialNumber"`
	WebServiceURL       string `json:"webServiceURL,omitempty"`
	AuthenticationToken string `json:"authenticationToken,omitempty"`

	Barcode  *Barcode  `json:"barcode,omitempty"`
	Barcodes []Barcode `json:"barcodes,omitempty"`

	LogoText        string `json:"logoText,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	ForegroundColor string `json:"foregroundColor,omitempty"`
	LabelColor      string `json:"labelColor,omitempty"`

	RelevantDate   string     `json:"relevantDate,omitempty"`
	ExpirationDate string     `json:"expirationDate,omitempty"`
	Voided         bool       `json:"voided,omitempty"`
	Locations      []Location `json:"locations,omitempty"`

	BoardingPass *FieldSet `json:"boardingPass,omitempty"`
	Coupon       *FieldSet `json:"coupon,omitempty"`
	EventTicket  *FieldSet `json:"eventTicket,omitempty"`
	Generic      *FieldSet `json:"generic,omitempty"`
	StoreCard    *FieldSet `json:"storeCard,omitempty"`

	// Extra holds pass.json keys not modelled above
	Extra map[string]json.RawMessage `json:"-"`

	// Files maps archive paths (e.g. "icon.png", "en.lproj/pass.strings") to file contents.
	// pass.json, manifest.json and signature are generated and cannot be supplied here.
	Files map[string][]byte `json:"-"`
}

// contentFields is an alias without the custom (un)marshalling methods
type contentFields Content

// knownKeys are the pass.json keys modelled by Content
var knownKeys = func() map[string]bool {
	keys := make(map[string]bool)
	t := reflect.TypeOf(contentFields{})
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name != "" && name != "-" {
			keys[name] = true
		}
	}
	return keys
}()

// MarshalJSON writes the pass.json dictionary, including any Extra keys
func (c Content) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(contentFields(c))
	if err != nil {
		return nil, err
	}
	if len(c.Extra) == 0 {
		return data, nil
	}

	merged := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range c.Extra {
		if knownKeys[k] {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON reads a pass.json dictionary. Unknown keys are kept in Extra.
func (c *Content) UnmarshalJSON(data []byte) error {
	var fields contentFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}
	for k := range all {
		if knownKeys[k] {
			delete(all, k)
		}
	}
	if len(all) > 0 {
		fields.Extra = all
	}

	files := c.Files
	*c = Content(fields)
	c.Files = files
	return nil
}

// Style returns the names of the pass styles set on the content
func (c *Content) Style() []string {
	var styles []string
	if c.BoardingPass != nil {
		styles = append(styles, "boardingPass")
	}
	if c.Coupon != nil {
		styles = append(styles, "coupon")
	}
	if c.EventTicket != nil {
		styles = append(styles, "eventTicket")
	}
	if c.Generic != nil {
		styles = append(styles, "generic")
	}
	if c.StoreCard != nil {
		styles = append(styles, "storeCard")
	}
	return styles
}

// HasBarcode reports whether the content carries a barcode in either the legacy or the current form
func (c *Content) HasBarcode() bool {
	return c.Barcode != nil || len(c.Barcodes) > 0
}
