// Package build runs the configured pipelines in declaration order and
// merges their warehouses into the final index sequence. Everything is
// strictly sequential: one fetch at a time, one probe at a time, no
// retries anywhere.
package build

import (
	"context"
	"io/ioutil"
	"math"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"multiroute/internal/config"
	"multiroute/internal/publish"
	"multiroute/pkg/fetch"
	"multiroute/pkg/harvest"
	"multiroute/pkg/log"
	"multiroute/pkg/probe"
	"multiroute/pkg/route"
)

type Builder struct {
	log.Logger
	Config *config.Config

	// Client serves the storehouse and README fetches. Probe clients
	// are built per pipeline from the validation policy's timeout.
	Client *fetch.Client
}

type Result struct {
	Warehouses []route.Warehouse
	Records    []publish.Record

	// Warnings accumulates per-source and per-candidate failures that
	// degraded output without aborting the run.
	Warnings error
}

func (b *Builder) Run(ctx context.Context) (*Result, error) {
	if b.Logger == nil {
		b.Logger = log.NewLogger(log.LevelInfo, os.Stderr, "[multiroute] ")
	}
	if b.Client == nil {
		b.Client = fetch.New(
			fetch.WithHTTPTimeout(time.Duration(b.Config.Defaults.TimeoutSeconds)*time.Second),
			fetch.WithHeaders(b.Config.Defaults.Headers),
			fetch.WithLogger(b.Logger),
		)
	}

	res := new(Result)
	for i := range b.Config.Pipelines {
		p := &b.Config.Pipelines[i]
		b.Infof("running pipeline %s (%s)", p.ID, p.Kind)

		start := time.Now()
		warehouses, err := b.dispatch(ctx, p, res)
		record := publish.Record{
			ID:         p.ID,
			Kind:       p.Kind,
			DurationMS: durationMS(start),
			Warehouses: len(warehouses),
		}

		if err != nil {
			if cErr := ctx.Err(); cErr != nil {
				return nil, cErr
			}
			switch err.(type) {
			case *publish.Error, *config.Error:
				return nil, err
			}

			record.Error = err.Error()
			b.Warnf("pipeline %s degraded: %v", p.ID, err)
			res.Warnings = multierror.Append(res.Warnings, &FetchError{Pipeline: p.ID, Kind: p.Kind, Err: err})
		}

		res.Warehouses = append(res.Warehouses, warehouses...)
		res.Records = append(res.Records, record)
	}

	b.Infof("merged %d warehouses from %d pipelines", len(res.Warehouses), len(res.Records))
	return res, nil
}

func (b *Builder) dispatch(ctx context.Context, p *config.Pipeline, res *Result) ([]route.Warehouse, error) {
	switch p.Kind {
	case config.KindRemoteStorehouse:
		return b.remoteStorehouse(ctx, p)
	case config.KindLocalStorehouse:
		return b.localStorehouse(p)
	case config.KindLocalURLsStorehouse:
		return b.localURLs(p), nil
	case config.KindQingningRemote:
		return b.qingningRemote(ctx, p, res)
	default:
		return nil, &config.Error{Field: p.ID + ".kind", Reason: "unrecognized pipeline kind " + p.Kind}
	}
}

// remoteStorehouse passes a remote warehouse listing through: declared
// warehouses keep their names and entry order, subject only to the
// global block rules.
func (b *Builder) remoteStorehouse(ctx context.Context, p *config.Pipeline) ([]route.Warehouse, error) {
	body, err := b.fetchFirst(ctx, p.SourceURLs())
	if err != nil {
		return nil, err
	}
	return b.decodeListing([]byte(body), p)
}

func (b *Builder) localStorehouse(p *config.Pipeline) ([]route.Warehouse, error) {
	data, err := ioutil.ReadFile(p.Source.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", p.Source.Path)
	}
	return b.decodeListing(data, p)
}

func (b *Builder) localURLs(p *config.Pipeline) []route.Warehouse {
	w := route.Warehouse{
		Name: p.Store.Name,
		URLs: append([]route.Entry(nil), p.URLs...),
	}
	return b.Config.Filters.Sanitize([]route.Warehouse{w})
}

// qingningRemote harvests candidate lines from a README, caches the
// pre-validation list, probes it per policy, and merges the survivors
// into one warehouse with positionally renumbered names.
func (b *Builder) qingningRemote(ctx context.Context, p *config.Pipeline, res *Result) ([]route.Warehouse, error) {
	extractor, err := harvest.New(p.Harvest.Pattern, p.Harvest.Marker)
	if err != nil {
		return nil, err
	}

	var candidates []route.Entry
	text, fetchErr := b.fetchFirst(ctx, p.SourceURLs())
	if fetchErr == nil {
		candidates = extractor.Candidates(text, p.SingleNameTemplate)
		b.Infof("pipeline %s harvested %d candidates", p.ID, len(candidates))
	}

	// The cache is written every run, before validation and even when
	// the harvest came back empty. It is overwritten wholesale.
	if err := publish.WriteEntries(p.CachePath(), candidates); err != nil {
		return nil, err
	}
	b.Debugf("cached %d candidates: %s", len(candidates), p.CachePath())

	if fetchErr != nil {
		return nil, fetchErr
	}

	if p.Validation.Active() {
		client := fetch.New(
			fetch.WithHTTPTimeout(p.Validation.Timeout()),
			fetch.WithHeaders(b.Config.Defaults.Headers),
			fetch.WithLogger(b.Logger),
		)
		kept, dropped := probe.New(client, b.Logger).Filter(ctx, candidates, p.Validation)
		if dropped != nil {
			res.Warnings = multierror.Append(res.Warnings, dropped)
		}
		b.Infof("pipeline %s validated %d/%d candidates", p.ID, len(kept), len(candidates))
		candidates = kept
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	// Renumber by surviving position, not by harvest index.
	urls := make([]route.Entry, len(candidates))
	for i, e := range candidates {
		urls[i] = route.Entry{Name: harvest.Name(p.SingleNameTemplate, i+1), URL: e.URL}
	}

	return []route.Warehouse{{Name: p.Store.Name, URLs: urls}}, nil
}

func (b *Builder) decodeListing(data []byte, p *config.Pipeline) ([]route.Warehouse, error) {
	warehouses, err := route.DecodeWarehouses(data, p.Source.Field)
	if err != nil {
		return nil, err
	}
	return b.Config.Filters.Sanitize(warehouses), nil
}

// fetchFirst tries each URL in order and returns the first successful
// body. Each URL gets exactly one attempt.
func (b *Builder) fetchFirst(ctx context.Context, urls []string) (string, error) {
	var merr error
	for _, u := range urls {
		text, err := b.Client.GetString(ctx, u)
		if err != nil {
			b.Warnf("fetch %s: %v", u, err)
			merr = multierror.Append(merr, errors.Wrapf(err, "fetch %s", u))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return text, nil
	}
	return "", merr
}

func durationMS(start time.Time) float64 {
	ms := float64(time.Since(start)) / float64(time.Millisecond)
	return math.Round(ms*100) / 100
}
