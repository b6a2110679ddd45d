package tenancy

// MatchPath reports whether path matches pattern, where "*" matches any
// run of characters including "/". Matching is case-sensitive and must
// cover the whole path.
func MatchPath(pattern, path string) bool {
	if pattern == path {
		return true
	}
	p, s := 0, 0
	star, mark := -1, 0
	for s < len(path) {
		switch {
		case p < len(pattern) && pattern[p] == '*':
			star, mark = p, s
			p++
		case p < len(pattern) && pattern[p] == path[s]:
			p++
			s++
		case star >= 0:
			p = star + 1
			mark++
			s = mark
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// ignored reports whether any pattern matches path.
func ignored(patterns []string, path string) bool {
	for _, pattern := range patterns {
		if MatchPath(pattern, path) {
			return true
		}
	}
	return false
}
