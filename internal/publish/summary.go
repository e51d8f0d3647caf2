package publish

import "strings"

// Link templates for the published repository. {repo} is the
// owner/name pair, {branch} the publishing branch, {path} the
// repo-relative artifact path.
const (
	RawTemplate      = "https://raw.githubusercontent.com/{repo}/{branch}/{path}"
	JSDelivrTemplate = "https://cdn.jsdelivr.net/gh/{repo}@{branch}/{path}"
	ProxyTemplate    = "https://ghproxy.net/https://raw.githubusercontent.com/{repo}/{branch}/{path}"
)

func DefaultTemplates() []string {
	return []string{RawTemplate, JSDelivrTemplate, ProxyTemplate}
}

func Expand(template, repo, branch, path string) string {
	r := strings.NewReplacer("{repo}", repo, "{branch}", branch, "{path}", path)
	return r.Replace(template)
}

// Record is one pipeline's run bookkeeping, reported in the summary in
// declaration order.
type Record struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	DurationMS float64 `json:"duration_ms"`
	Warehouses int     `json:"warehouses"`
	Error      string  `json:"error,omitempty"`
}

type Summary struct {
	GeneratedAt int64    `json:"generated_at"`
	Pipelines   []Record `json:"pipelines"`
	RawIndex    string   `json:"raw_index"`
	CDNIndex    string   `json:"cdn_index"`
	ProxyIndex  string   `json:"proxy_index"`
}

// Artifact is one published file in the mirror-links registry, with one
// mirror URL per configured template.
type Artifact struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Path    string   `json:"path"`
	Mirrors []string `json:"mirrors"`
}
