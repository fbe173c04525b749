package gateway

import "strconv"

// itoaSeat renders a seat number as a string map key, per spec.md
// section 4.4's "keys serialized as strings for cross-codec
// compatibility" requirement on connection_established.
func itoaSeat(seat int) string {
	return strconv.Itoa(seat)
}
