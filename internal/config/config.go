// Package config loads and checks the pipeline document. The document
// is read once at startup and never mutated afterwards; anything wrong
// with it is fatal before the first fetch.
package config

import (
	"fmt"
	"io/ioutil"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"multiroute/pkg/probe"
	"multiroute/pkg/route"
)

const (
	KindRemoteStorehouse    = "remote_storehouse"
	KindLocalStorehouse     = "local_storehouse"
	KindLocalURLsStorehouse = "local_urls_storehouse"
	KindQingningRemote      = "qingning_remote"
)

const (
	DefaultTimeoutSeconds = 10
	DefaultCachePath      = "data/qingning_single.json"
	DefaultOutputDir      = "dist"
	DefaultIndexPath      = "routes/multi/index.json"
	DefaultStorehouseDir  = "routes/storehouses"
	DefaultSummaryPath    = "meta/routes_summary.json"
	DefaultLinksPath      = "meta/domestic_links.json"
)

type Error struct {
	Field  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

type Config struct {
	Defaults struct {
		TimeoutSeconds int               `yaml:"timeout_seconds"`
		Headers        map[string]string `yaml:"headers"`
	} `yaml:"defaults"`

	Filters route.Rules `yaml:"filters"`

	Mirrors struct {
		Templates []string `yaml:"templates"`
	} `yaml:"mirrors"`

	Output struct {
		Dir           string `yaml:"dir"`
		Index         string `yaml:"index"`
		StorehouseDir string `yaml:"storehouse_dir"`
		Summary       string `yaml:"summary"`
		Links         string `yaml:"links"`
	} `yaml:"output"`

	Pipelines []Pipeline `yaml:"pipelines"`
}

type Pipeline struct {
	ID   string `yaml:"id"`
	Kind string `yaml:"kind"`

	Source struct {
		URL   string   `yaml:"url"`
		URLs  []string `yaml:"urls"`
		Path  string   `yaml:"path"`
		Field string   `yaml:"field"`
	} `yaml:"source"`

	Store struct {
		Name string `yaml:"name"`
	} `yaml:"store"`

	URLs []route.Entry `yaml:"urls"`

	SingleNameTemplate string `yaml:"single_name_template"`

	Harvest struct {
		Pattern string `yaml:"pattern"`
		Marker  string `yaml:"marker"`
	} `yaml:"harvest"`

	Validation *probe.Policy `yaml:"validation"`
	Cache      string        `yaml:"cache"`
}

// SourceURLs returns the fetch candidates for a remote pipeline in
// fallback order.
func (p *Pipeline) SourceURLs() []string {
	if len(p.Source.URLs) > 0 {
		return p.Source.URLs
	}
	if p.Source.URL != "" {
		return []string{p.Source.URL}
	}
	return nil
}

func (p *Pipeline) CachePath() string {
	if p.Cache == "" {
		return DefaultCachePath
	}
	return p.Cache
}

func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, &Error{Field: path, Reason: "cannot read config file", Err: err}
	}

	config := new(Config)
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, &Error{Field: path, Reason: "cannot parse YAML", Err: err}
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Defaults.TimeoutSeconds <= 0 {
		c.Defaults.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Output.Index == "" {
		c.Output.Index = DefaultIndexPath
	}
	if c.Output.StorehouseDir == "" {
		c.Output.StorehouseDir = DefaultStorehouseDir
	}
	if c.Output.Summary == "" {
		c.Output.Summary = DefaultSummaryPath
	}
	if c.Output.Links == "" {
		c.Output.Links = DefaultLinksPath
	}
}

func (c *Config) Validate() error {
	if len(c.Pipelines) == 0 {
		return &Error{Field: "pipelines", Reason: "at least one pipeline is required"}
	}

	seen := make(map[string]bool, len(c.Pipelines))
	for i := range c.Pipelines {
		p := &c.Pipelines[i]
		field := fmt.Sprintf("pipelines[%d]", i)

		if p.ID == "" {
			return &Error{Field: field + ".id", Reason: "missing pipeline id"}
		}
		if seen[p.ID] {
			return &Error{Field: field + ".id", Reason: fmt.Sprintf("duplicate pipeline id %q", p.ID)}
		}
		seen[p.ID] = true

		if err := p.validate(field); err != nil {
			return err
		}
	}

	return nil
}

func (p *Pipeline) validate(field string) error {
	switch p.Kind {
	case KindRemoteStorehouse:
		return p.validateRemote(field)
	case KindLocalStorehouse:
		return p.validateLocal(field)
	case KindLocalURLsStorehouse:
		return p.validateLocalURLs(field)
	case KindQingningRemote:
		return p.validateQingning(field)
	case "":
		return &Error{Field: field + ".kind", Reason: "missing pipeline kind"}
	default:
		return &Error{Field: field + ".kind", Reason: fmt.Sprintf("unrecognized pipeline kind %q", p.Kind)}
	}
}

func (p *Pipeline) validateRemote(field string) error {
	return validateSourceURLs(field, p.SourceURLs())
}

func (p *Pipeline) validateLocal(field string) error {
	if p.Source.Path == "" {
		return &Error{Field: field + ".source.path", Reason: "missing local storehouse path"}
	}
	return nil
}

func (p *Pipeline) validateLocalURLs(field string) error {
	if p.Store.Name == "" {
		return &Error{Field: field + ".store.name", Reason: "missing warehouse name"}
	}
	if len(p.URLs) == 0 {
		return &Error{Field: field + ".urls", Reason: "at least one url entry is required"}
	}

	names := make(map[string]bool, len(p.URLs))
	for i, e := range p.URLs {
		entryField := fmt.Sprintf("%s.urls[%d]", field, i)
		if e.Name == "" {
			return &Error{Field: entryField + ".name", Reason: "missing entry name"}
		}
		if names[e.Name] {
			return &Error{Field: entryField + ".name", Reason: fmt.Sprintf("duplicate entry name %q", e.Name)}
		}
		names[e.Name] = true
		if !route.ValidURL(e.URL) {
			return &Error{Field: entryField + ".url", Reason: fmt.Sprintf("not an http(s) URL: %q", e.URL)}
		}
	}
	return nil
}

func (p *Pipeline) validateQingning(field string) error {
	if err := validateSourceURLs(field, p.SourceURLs()); err != nil {
		return err
	}
	if p.Store.Name == "" {
		return &Error{Field: field + ".store.name", Reason: "missing warehouse name"}
	}
	if p.SingleNameTemplate == "" {
		return &Error{Field: field + ".single_name_template", Reason: "missing line name template"}
	}
	if !strings.Contains(p.SingleNameTemplate, "{n}") {
		return &Error{
			Field:  field + ".single_name_template",
			Reason: fmt.Sprintf("template %q does not contain {n}", p.SingleNameTemplate),
		}
	}
	if p.Harvest.Pattern != "" {
		if _, err := regexp.Compile(p.Harvest.Pattern); err != nil {
			return &Error{Field: field + ".harvest.pattern", Reason: "invalid pattern", Err: err}
		}
	}
	return nil
}

func validateSourceURLs(field string, urls []string) error {
	if len(urls) == 0 {
		return &Error{Field: field + ".source.url", Reason: "missing source url"}
	}
	for i, u := range urls {
		if !route.ValidURL(u) {
			return &Error{
				Field:  fmt.Sprintf("%s.source.urls[%d]", field, i),
				Reason: fmt.Sprintf("not an http(s) URL: %q", u),
			}
		}
	}
	return nil
}
