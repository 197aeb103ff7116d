package types

import (
	"fmt"
	"regexp"
)

// MaxRouteLength bounds route names; a route also names the service's namespace.
const MaxRouteLength = 32

var isAlpha = regexp.MustCompile(`^[a-zA-Z]+$`).MatchString

// ValidateRoute accepts non-empty alphabetic route names.
func ValidateRoute(route string) error {
	if !isAlpha(route) {
		return fmt.Errorf("route %q is not alphabetic", route)
	}
	if len(route) > MaxRouteLength {
		return fmt.Errorf("route %q is longer than %d characters", route, MaxRouteLength)
	}
	return nil
}
