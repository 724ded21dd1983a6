package stock

import (
	"strings"
	"unicode"
)

// ItemKey identifies one trackable product across scan cycles:
// "namespace::identity". Bookkeeping entries for permanently ignored
// variants live under the "_ignored" prefix and never collide with
// trackable keys.
type ItemKey string

const (
	keySeparator  = "::"
	ignoredPrefix = "_ignored"
)

// NewKey builds a trackable key.
func NewKey(namespace, identity string) ItemKey {
	return ItemKey(namespace + keySeparator + identity)
}

// NewIgnoredKey builds the segregated bookkeeping key for an ignored variant.
func NewIgnoredKey(namespace, identity string) ItemKey {
	return ItemKey(ignoredPrefix + keySeparator + namespace + keySeparator + identity)
}

// IsIgnored reports whether k is a bookkeeping entry.
func (k ItemKey) IsIgnored() bool {
	return strings.HasPrefix(string(k), ignoredPrefix+keySeparator)
}

// Namespace returns the source namespace, or "" for keys in an older,
// unnamespaced scheme.
func (k ItemKey) Namespace() string {
	s := strings.TrimPrefix(string(k), ignoredPrefix+keySeparator)
	ns, _, ok := strings.Cut(s, keySeparator)
	if !ok {
		return ""
	}
	return ns
}

// Identity returns the part after the namespace.
func (k ItemKey) Identity() string {
	s := strings.TrimPrefix(string(k), ignoredPrefix+keySeparator)
	_, id, ok := strings.Cut(s, keySeparator)
	if !ok {
		return s
	}
	return id
}

func (k ItemKey) String() string { return string(k) }

// Slug lower-cases s and collapses every run of non-alphanumerics into "-".
//
//	Slug("BK Rush Break Cue – Sport Wrap") == "bk-rush-break-cue-sport-wrap"
func Slug(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
