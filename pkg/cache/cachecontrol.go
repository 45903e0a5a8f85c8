package cache

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// maxDeltaSeconds is what an overflowing delta-seconds value is clamped to
// (RFC 9111 section 1.2.2).
const maxDeltaSeconds = 2147483648

// CacheControl holds the directives of a Cache-Control header, keyed by
// lower-cased name. Directives without an argument map to "".
//
//	Cache-Control   = #cache-directive
//	cache-directive = token [ "=" ( token / quoted-string ) ]
type CacheControl struct {
	directives map[string]string
}

// ParseCacheControl parses every Cache-Control header value. The boolean is
// false when there are no directives at all or when the header is malformed;
// callers treat both the same way, as if the header were absent. A repeated
// directive keeps its last value.
func ParseCacheControl(values []string) (CacheControl, bool) {
	directives := make(map[string]string)
	for _, v := range values {
		if !parseDirectives(v, directives) {
			return CacheControl{}, false
		}
	}
	if len(directives) == 0 {
		return CacheControl{}, false
	}
	if arg, ok := directives["max-age"]; ok {
		switch {
		case isNegativeSeconds(arg):
			// Already stale.
			directives["max-age"] = "0"
		case !isDeltaSeconds(arg):
			return CacheControl{}, false
		}
	}
	return CacheControl{directives: directives}, true
}

// ForbidsStorage reports whether any Cache-Control value carries a no-store
// directive. Unlike ParseCacheControl it tolerates malformed headers: a
// no-store token anywhere in the list counts.
func ForbidsStorage(values []string) bool {
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			name, _, _ := strings.Cut(part, "=")
			if strings.EqualFold(strings.TrimSpace(name), "no-store") {
				return true
			}
		}
	}
	return false
}

// Get returns the argument of the directive and whether it is present.
func (c CacheControl) Get(directive string) (string, bool) {
	val, ok := c.directives[strings.ToLower(directive)]
	return val, ok
}

// Has reports whether the directive is present.
func (c CacheControl) Has(directive string) bool {
	_, ok := c.Get(directive)
	return ok
}

// Len returns the number of distinct directives.
func (c CacheControl) Len() int {
	return len(c.directives)
}

// MaxAge returns max-age as a duration and whether it was present.
func (c CacheControl) MaxAge() (time.Duration, bool) {
	arg, ok := c.Get("max-age")
	if !ok {
		return 0, false
	}
	return deltaSeconds(arg), true
}

func parseDirectives(s string, into map[string]string) bool {
	i := 0
	for i < len(s) {
		for i < len(s) && (isSpace(s[i]) || s[i] == ',') {
			i++
		}
		if i >= len(s) {
			break
		}

		start := i
		for i < len(s) && isTokenChar(s[i]) {
			i++
		}
		if i == start {
			return false
		}
		name := strings.ToLower(s[start:i])

		var arg string
		if i < len(s) && s[i] == '=' {
			i++
			var ok bool
			if arg, i, ok = parseArgument(s, i); !ok {
				return false
			}
		}

		for i < len(s) && isSpace(s[i]) {
			i++
		}
		if i < len(s) && s[i] != ',' {
			return false
		}
		into[name] = arg
	}
	return true
}

// parseArgument reads a token or quoted-string starting at i and returns the
// unquoted value and the index just past it.
func parseArgument(s string, i int) (string, int, bool) {
	if i < len(s) && s[i] == '"' {
		i++
		var b strings.Builder
		for i < len(s) {
			switch c := s[i]; {
			case c == '\\' && i+1 < len(s):
				b.WriteByte(s[i+1])
				i += 2
			case c == '"':
				return b.String(), i + 1, true
			default:
				b.WriteByte(c)
				i++
			}
		}
		return "", i, false
	}

	start := i
	for i < len(s) && isTokenChar(s[i]) {
		i++
	}
	if i == start {
		return "", i, false
	}
	return s[start:i], i, true
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t'
}

// isTokenChar reports whether c is a tchar (RFC 9110 section 5.6.2).
func isTokenChar(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0
}

func isDeltaSeconds(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func isNegativeSeconds(s string) bool {
	return len(s) > 1 && s[0] == '-' && isDeltaSeconds(s[1:])
}

// deltaSeconds converts a validated delta-seconds string, clamping overflow.
func deltaSeconds(s string) time.Duration {
	secs, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return maxDeltaSeconds * time.Second
		}
		return 0
	}
	if secs > maxDeltaSeconds {
		secs = maxDeltaSeconds
	}
	return time.Duration(secs) * time.Second
}
