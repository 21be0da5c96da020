package urlcheck

import (
	"net"
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/net/publicsuffix"
)

// shortenerDomains are link shorteners. Their targets cannot be verified and they
// hide referral links, so submissions through them are refused.
var shortenerDomains = map[string]bool{
	"bit.ly":      true,
	"bitly.com":   true,
	"tinyurl.com": true,
	"t.co":        true,
	"goo.gl":      true,
	"ow.ly":       true,
	"is.gd":       true,
	"buff.ly":     true,
	"rebrand.ly":  true,
	"cutt.ly":     true,
	"shorturl.at": true,
	"tiny.cc":     true,
	"rb.gy":       true,
	"bl.ink":      true,
	"lnkd.in":     true,
	"short.io":    true,
	"t.ly":        true,
	"v.gd":        true,
	"shorte.st":   true,
	"adf.ly":      true,
	"s.id":        true,
	"tr.im":       true,
	"amzn.to":     true,
}

// referralParams are query keys that carry somebody's referral code.
var referralParams = []string{
	"ref", "ref_id", "refid", "referral", "referrer", "ref_code",
	"aff", "aff_id", "affid", "affiliate", "affiliate_id",
	"via", "fpr", "partner_id", "tap_a", "irclickid",
}

const (
	minReferralSegment = 5
	maxReferralSegment = 12
)

// Rejection explains why a URL was refused
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string {
	return r.Reason
}

func reject(reason string) *Rejection {
	return &Rejection{Reason: reason}
}

// Parse checks the URL's format and returns it normalized: lowercase scheme and
// host, no default port, no fragment, no trailing slash.
func Parse(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, reject("URL is required")
	}
	if len(raw) > 2048 {
		return nil, reject("URL is too long")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, reject("URL is not valid")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, reject("URL must start with http:// or https://")
	}
	if u.User != nil {
		return nil, reject("URL must not contain credentials")
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" {
		return nil, reject("URL must include a host")
	}
	if net.ParseIP(host) != nil {
		return nil, reject("URL must use a domain name, not an IP address")
	}
	if host == "localhost" || strings.HasSuffix(host, ".localhost") || strings.HasSuffix(host, ".local") {
		return nil, reject("URL must be publicly reachable")
	}
	if _, err := RegistrableDomain(host); err != nil {
		return nil, reject("URL host is not a valid public domain")
	}

	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	u.Host = host
	if port != "" {
		u.Host = net.JoinHostPort(host, port)
	}
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "/" {
		u.Path = ""
		u.RawPath = ""
	} else {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	}
	return u, nil
}

// RegistrableDomain returns the eTLD+1 of host ("www.shop.example.co.uk" ->
// "example.co.uk"). Hosts under unknown TLDs are an error.
func RegistrableDomain(host string) (string, error) {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	suffix, icann := publicsuffix.PublicSuffix(host)
	if !icann && !strings.Contains(suffix, ".") {
		return "", reject("unknown top-level domain")
	}
	return publicsuffix.EffectiveTLDPlusOne(host)
}

// CheckPolicy applies the listing rules that need no network: shorteners,
// referral query parameters and referral-looking path segments.
func CheckPolicy(u *url.URL) error {
	domain, err := RegistrableDomain(u.Hostname())
	if err != nil {
		return reject("URL host is not a valid public domain")
	}
	if shortenerDomains[domain] || shortenerDomains[u.Hostname()] {
		return reject("link shorteners are not allowed; use the destination URL")
	}

	query := u.Query()
	for _, key := range referralParams {
		for k := range query {
			if strings.EqualFold(k, key) {
				return reject("URL must not contain a referral parameter (" + k + ")")
			}
		}
	}

	if seg := lastSegment(u.Path); looksLikeReferralCode(seg) {
		return reject("URL path looks like a referral code (" + seg + ")")
	}
	return nil
}

func lastSegment(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// looksLikeReferralCode matches 5 to 12 characters with no separators that carry a
// digit or an uppercase letter, such as "X7K2P" or "abc123".
func looksLikeReferralCode(seg string) bool {
	if len(seg) < minReferralSegment || len(seg) > maxReferralSegment {
		return false
	}
	if strings.ContainsAny(seg, "-_.~") {
		return false
	}

	marked := false
	for _, r := range seg {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
		if unicode.IsDigit(r) || unicode.IsUpper(r) {
			marked = true
		}
	}
	return marked
}
