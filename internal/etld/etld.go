// etld.go — registrable-domain (eTLD+1) classification for the
// is_third_party predicate of §3/§4.C.
//
// golang.org/x/net/publicsuffix resolves Open Question §9.3: the spec's
// "last two labels" approximation misclassifies country-coded
// second-level domains (e.g. "co.uk", "github.io"). This package uses
// the public suffix list instead, falling back to the simplified
// approximation only when the PSL lookup itself fails (e.g. a
// single-label host). IP literals are returned unchanged without a lookup.
package etld

import (
	"net"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// RegistrableDomain returns the eTLD+1 of host, e.g. "ads.example.co.uk"
// -> "example.co.uk". Returns host unchanged if it has no registrable
// parent (single-label hosts, IP literals, or PSL-internal failures).
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return ""
	}
	if net.ParseIP(host) != nil {
		return host
	}
	if dom, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return dom
	}
	return simplifiedTwoLabel(host)
}

// simplifiedTwoLabel is the spec's documented fallback: the last two
// dot-separated labels. Used only when the PSL lookup cannot classify
// the host at all.
func simplifiedTwoLabel(host string) string {
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// IsThirdParty reports whether requestHost's registrable domain differs
// from pageHost's, per §3's definition of third-party.
func IsThirdParty(requestHost, pageHost string) bool {
	if requestHost == "" || pageHost == "" {
		return false
	}
	return RegistrableDomain(requestHost) != RegistrableDomain(pageHost)
}
