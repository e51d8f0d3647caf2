package route

import (
	"net/url"
	"strings"
)

// Rules carries the global block lists applied to every warehouse
// listing before it is merged. Matching is case-insensitive; domains
// match by host suffix.
type Rules struct {
	BlockedKeywords    []string `yaml:"blocked_keywords"`
	BlockedURLKeywords []string `yaml:"blocked_url_keywords"`
	BlockedDomains     []string `yaml:"blocked_domains"`
}

// Sanitize filters a decoded warehouse listing in place of trust:
// warehouses without a name or with a blocked name are dropped, entries
// with missing or non-http(s) urls are dropped, blocked entries are
// dropped, and duplicate entry names within one warehouse keep the
// first occurrence. Entry names fall back to the owning warehouse name.
func (r Rules) Sanitize(warehouses []Warehouse) []Warehouse {
	out := make([]Warehouse, 0, len(warehouses))
	for _, w := range warehouses {
		if w.Name == "" || r.blockedName(w.Name) {
			continue
		}

		seen := make(map[string]bool, len(w.URLs))
		urls := make([]Entry, 0, len(w.URLs))
		for _, e := range w.URLs {
			if !ValidURL(e.URL) {
				continue
			}
			if e.Name == "" {
				e.Name = w.Name
			}
			if r.blockedName(e.Name) || r.blockedURL(e.URL) {
				continue
			}
			if seen[e.Name] {
				continue
			}
			seen[e.Name] = true
			urls = append(urls, e)
		}

		w.URLs = urls
		out = append(out, w)
	}
	return out
}

func (r Rules) blockedName(name string) bool {
	return containsAny(name, r.BlockedKeywords)
}

func (r Rules) blockedURL(rawurl string) bool {
	if containsAny(rawurl, r.BlockedURLKeywords) {
		return true
	}

	if len(r.BlockedDomains) == 0 {
		return false
	}
	u, err := url.Parse(rawurl)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, domain := range r.BlockedDomains {
		if strings.HasSuffix(host, strings.ToLower(domain)) {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	s = strings.ToLower(s)
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(s, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
