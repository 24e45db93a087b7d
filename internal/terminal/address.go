package terminal

import (
	"net/url"
	"strings"
)

// SessionQueryParam names the session in a navigable address.
const SessionQueryParam = "sessionId"

// AddressSource yields the current navigable address, such as
// "/lab/k8s-basics?sessionId=3f2a". It may change between calls.
type AddressSource interface {
	Address() string
}

// AddressFunc adapts a function to AddressSource.
type AddressFunc func() string

// Address implements AddressSource.
func (f AddressFunc) Address() string { return f() }

// StaticAddress is a fixed address.
type StaticAddress string

// Address implements AddressSource.
func (s StaticAddress) Address() string { return string(s) }

// SessionIDFromAddress returns the sessionId query parameter, or "".
func SessionIDFromAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		return ""
	}
	u, err := url.Parse(address)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(u.Query().Get(SessionQueryParam))
}

// LabAddress builds the navigable address for a running lab.
func LabAddress(labID, sessionID string) string {
	v := url.Values{}
	v.Set(SessionQueryParam, sessionID)
	return "/lab/" + url.PathEscape(labID) + "?" + v.Encode()
}
