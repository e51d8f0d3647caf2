// Package route holds the two-tier data model shared by every pipeline:
// a Warehouse names an ordered list of line Entries, and the published
// index is an ordered list of Warehouses.
package route

import "net/url"

type Entry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Warehouse struct {
	Name string  `json:"name"`
	URLs []Entry `json:"urls"`
}

func (w *Warehouse) Clone() *Warehouse {
	clone := new(Warehouse)
	clone.Name = w.Name
	clone.URLs = make([]Entry, len(w.URLs))
	copy(clone.URLs, w.URLs)
	return clone
}

// ValidURL reports whether s parses as an absolute http or https URL
// with a host. Entries that fail this check never reach the output.
func ValidURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
