// Package probe filters harvested candidates by actually requesting
// them once each. There are no retries: an endpoint that fails its one
// probe is out for this run.
package probe

import (
	"time"

	"github.com/pkg/errors"
)

const DefaultTimeoutSeconds = 10

// Policy mirrors the validation section of a pipeline. A nil Policy
// means the section was omitted and validation is off; a present
// section defaults to enabled.
type Policy struct {
	Enabled        *bool `yaml:"enabled"`
	TimeoutSeconds int   `yaml:"timeout_seconds"`
	RequireJSON    bool  `yaml:"require_json"`
	MaxCount       int   `yaml:"max_count"`
}

func (p *Policy) Active() bool {
	if p == nil {
		return false
	}
	return p.Enabled == nil || *p.Enabled
}

func (p *Policy) Timeout() time.Duration {
	if p == nil || p.TimeoutSeconds <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// Cap returns the accepted-candidate limit, 0 meaning unbounded.
func (p *Policy) Cap() int {
	if p == nil || p.MaxCount < 0 {
		return 0
	}
	return p.MaxCount
}

var errNotJSON = errors.New("response body is not valid JSON")

type ValidationError struct {
	URL string
	Err error
}

func (e ValidationError) Error() string {
	return errors.Wrapf(e.Err, "probe %s", e.URL).Error()
}
