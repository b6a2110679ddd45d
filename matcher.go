package bastion

import "strings"

// matchPermission reports whether a granted permission name covers the
// required one. Permission format is dotted ("settings.manage"); a
// granted name may end in ".*" or "*" to cover a whole family.
func matchPermission(granted, required string) bool {
	if granted == "*" || granted == required {
		return true
	}
	if strings.HasSuffix(granted, ".*") {
		prefix := strings.TrimSuffix(granted, "*")
		return strings.HasPrefix(required, prefix)
	}
	if strings.HasSuffix(granted, "*") {
		prefix := strings.TrimSuffix(granted, "*")
		return strings.HasPrefix(required, prefix)
	}
	return false
}
