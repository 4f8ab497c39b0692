package passbook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OriginRef identifies the external record a pass represents.
// Type must be one of the origin types registered in the OriginRegistry.
type OriginRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// String returns the reference in "type,id" form
func (o OriginRef) String() string {
	return o.Type + "," + o.ID
}

// ParseOriginRef parses a reference in "type,id" form
func ParseOriginRef(s string) (OriginRef, error) {
	originType, id, ok := strings.Cut(s, ",")
	if !ok || originType == "" || id == "" {
		return OriginRef{}, NewBadRequestError(fmt.Sprintf("invalid origin reference %q (expected type,id)", s))
	}
	return OriginRef{Type: originType, ID: id}, nil
}

// Pass is one issued Wallet pass.
//
// The pass ID is the serial number used in the protocol. The pass's last update time is not stored:
// it is the origin's last modified time (see OriginRegistry.LastUpdate).
type Pass struct {
	ID                  int64     `json:"id"`
	Origin              OriginRef `json:"origin"`
	AuthenticationToken string    `json:"-"`
	Active              bool      `json:"active"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// SerialNumber returns the protocol serial number (the decimal pass ID)
func (p *Pass) SerialNumber() string {
	return strconv.FormatInt(p.ID, 10)
}

// ParsePassID parses a serial number taken from a request path.
// Only positive decimal integers are valid pass IDs.
func ParsePassID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Registration links a device to a pass so the device can be sent push notifications when the pass changes
type Registration struct {
	ID                      int64     `json:"id"`
	PassID                  int64     `json:"passId"`
	DeviceLibraryIdentifier string    `json:"deviceLibraryIdentifier"`
	PushToken               string    `json:"pushToken"`
	CreatedAt               time.Time `json:"createdAt"`
}

// NewAuthenticationToken returns a new random authentication token
func NewAuthenticationToken() string {
	return uuid.NewString()
}
