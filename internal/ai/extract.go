package ai

// ExtractObject returns the first balanced {...} substring of s.
func ExtractObject(s string) (string, bool) {
	return extractBalanced(s, '{', '}')
}

// ExtractArray returns the first balanced [...] substring of s.
func ExtractArray(s string) (string, bool) {
	return extractBalanced(s, '[', ']')
}

// extractBalanced skips brackets inside JSON string literals. If the first
// opener never closes, later openers are tried.
func extractBalanced(s string, open, close byte) (string, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != open {
			continue
		}
		depth := 0
		inString, escaped := false, false
		for i := start; i < len(s); i++ {
			c := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case open:
				depth++
			case close:
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
