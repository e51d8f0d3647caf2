package probe

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/tidwall/gjson"

	"multiroute/pkg/fetch"
	"multiroute/pkg/log"
	"multiroute/pkg/route"
)

type Prober struct {
	client *fetch.Client
	logger log.Logger
}

func New(client *fetch.Client, logger log.Logger) *Prober {
	return &Prober{client: client, logger: logger}
}

// Filter probes candidates in order and returns the survivors, still in
// order, plus the accumulated drops. Once Cap() survivors are accepted
// the remaining candidates are not probed at all.
func (p *Prober) Filter(ctx context.Context, candidates []route.Entry, policy *Policy) ([]route.Entry, error) {
	if !policy.Active() {
		return candidates, nil
	}

	var merr error
	capacity := policy.Cap()
	kept := make([]route.Entry, 0, len(candidates))
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			break
		}
		if capacity > 0 && len(kept) >= capacity {
			p.Debugf("cap %d reached; skipping remaining candidates", capacity)
			break
		}

		if err := p.check(ctx, candidate.URL, policy); err != nil {
			p.Warnf("dropping %s: %v", candidate.URL, err)
			merr = multierror.Append(merr, ValidationError{URL: candidate.URL, Err: err})
			continue
		}

		kept = append(kept, candidate)
	}

	return kept, merr
}

func (p *Prober) check(ctx context.Context, rawurl string, policy *Policy) error {
	body, err := p.client.GetBytes(ctx, rawurl)
	if err != nil {
		return err
	}

	if policy.RequireJSON && !gjson.ValidBytes(body) {
		return errNotJSON
	}

	return nil
}

func (p *Prober) Warnf(format string, v ...interface{}) {
	if p.logger != nil {
		p.logger.Warnf(format, v...)
	}
}

func (p *Prober) Debugf(format string, v ...interface{}) {
	if p.logger != nil {
		p.logger.Debugf(format, v...)
	}
}
