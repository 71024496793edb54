package utils

import (
	"strconv"
)

// ParseID converts a path parameter to an entity id, returns 0 if it is not a positive integer.
// Id 0 never exists, so callers can treat it as "unknown entity".
func ParseID(s string) uint {
	i, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return uint(i)
}
