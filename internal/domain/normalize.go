package domain

import (
	"net/url"
	"strings"
	"unicode"
)

// builtinTracked are the query parameters always stripped during
// normalization. Matching is whole-parameter, never substring.
var builtinTracked = map[string]struct{}{
	"fbclid": {},
	"gclid":  {},
	"ref":    {},
	"source": {},
}

// utmPrefix strips the whole utm_* family.
const utmPrefix = "utm_"

// Normalizer turns any string a user could paste or share into the
// canonical dedup key. It is pure and safe for concurrent use.
type Normalizer struct {
	strip map[string]struct{}
}

// NewNormalizer builds a normalizer with the built-in strip list plus
// operator-supplied extra tracking parameters.
func NewNormalizer(extraParams []string) *Normalizer {
	strip := make(map[string]struct{}, len(builtinTracked)+len(extraParams))
	for p := range builtinTracked {
		strip[p] = struct{}{}
	}
	for _, p := range extraParams {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			strip[p] = struct{}{}
		}
	}
	return &Normalizer{strip: strip}
}

var defaultNormalizer = NewNormalizer(nil)

// Normalize applies the default strip list. See Normalizer.Normalize.
func Normalize(raw string) (string, error) {
	return defaultNormalizer.Normalize(raw)
}

// Normalize canonicalizes raw into the dedup key:
// extract the first http(s) token, lowercase scheme and host, strip a
// leading www. label, remove tracking parameters, drop the fragment,
// drop a single trailing slash. The result is stable under repeated
// application.
func (n *Normalizer) Normalize(raw string) (string, error) {
	token, ok := ExtractURL(raw)
	if !ok {
		return "", &ValidationError{Field: "url", Message: "no http(s) URL found in input"}
	}

	u, err := url.Parse(token)
	if err != nil || u.Host == "" {
		return "", &ValidationError{Field: "url", Message: "malformed URL"}
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	host = strings.TrimPrefix(host, "www.")
	u.Host = host

	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			lk := strings.ToLower(key)
			if strings.HasPrefix(lk, utmPrefix) {
				q.Del(key)
				continue
			}
			if _, drop := n.strip[lk]; drop {
				q.Del(key)
			}
		}
		u.RawQuery = q.Encode()
	}

	u.Fragment = ""
	u.RawFragment = ""

	if strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = ""
	}

	return u.String(), nil
}

// ExtractURL returns the first scheme-qualified http(s) token in text.
// The token runs until the next whitespace rune.
func ExtractURL(text string) (string, bool) {
	lower := strings.ToLower(text)

	start := -1
	for _, scheme := range []string{"http://", "https://"} {
		if i := strings.Index(lower, scheme); i >= 0 && (start < 0 || i < start) {
			start = i
		}
	}
	if start < 0 {
		return "", false
	}

	token := text[start:]
	if end := strings.IndexFunc(token, unicode.IsSpace); end >= 0 {
		token = token[:end]
	}
	if token == "" {
		return "", false
	}
	return token, true
}

// DomainOf extracts the host (without port or www. label) from a URL.
// Returns "" when the URL cannot be parsed.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
