// Package harvest extracts single-endpoint URLs from free-form README
// text. The matching rule is configuration, not code: README formatting
// is an unversioned external contract and changes without notice.
package harvest

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/sets/linkedhashset"
	"github.com/pkg/errors"

	"multiroute/pkg/route"
)

// DefaultPattern matches one http(s) URL token. Asterisks terminate a
// token because the upstream README wraps links in markdown emphasis.
const DefaultPattern = `https?://[^\s*]+`

type Extractor struct {
	pattern *regexp.Regexp
	marker  string
}

// New compiles pattern (DefaultPattern when empty). When marker is
// non-empty only lines containing it are scanned, which keeps unrelated
// links in the document out of the candidate list.
func New(pattern, marker string) (*Extractor, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid harvest pattern %q", pattern)
	}

	return &Extractor{pattern: re, marker: marker}, nil
}

// URLs returns every matching URL in document order, deduplicated on
// first occurrence. Trailing close-parens are trimmed; markdown link
// syntax leaves them glued to the token.
func (x *Extractor) URLs(text string) []string {
	set := linkedhashset.New()
	for _, line := range strings.Split(text, "\n") {
		if x.marker != "" && !strings.Contains(line, x.marker) {
			continue
		}
		for _, m := range x.pattern.FindAllString(line, -1) {
			m = strings.TrimRight(m, ")")
			if route.ValidURL(m) {
				set.Add(m)
			}
		}
	}

	urls := make([]string, 0, set.Size())
	it := set.Iterator()
	for it.Next() {
		urls = append(urls, it.Value().(string))
	}
	return urls
}

// Candidates names each harvested URL by its 1-based position.
func (x *Extractor) Candidates(text, template string) []route.Entry {
	urls := x.URLs(text)
	entries := make([]route.Entry, len(urls))
	for i, u := range urls {
		entries[i] = route.Entry{Name: Name(template, i+1), URL: u}
	}
	return entries
}

// Name substitutes the positional index into a line-name template such
// as "线路{n}".
func Name(template string, n int) string {
	return strings.Replace(template, "{n}", strconv.Itoa(n), -1)
}
