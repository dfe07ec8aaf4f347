// Package tap creates one TAP interface per switch port. Interfaces are
// named <prefix><port>, brought up on open and removed when the transport
// is closed.
package tap

import "fmt"

const Name = "tap"

// InterfaceName returns the interface backing port.
func InterfaceName(prefix string, port int) string {
	return fmt.Sprintf("%s%d", prefix, port)
}
