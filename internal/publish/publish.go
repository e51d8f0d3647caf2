// Package publish serializes the merged warehouse set into the static
// output tree. It validates nothing; whatever the builder merged is
// what gets written. Any filesystem failure here is fatal to the run.
package publish

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-multierror"

	"multiroute/internal/config"
	"multiroute/pkg/log"
	"multiroute/pkg/route"
)

type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

type Writer struct {
	log.Logger

	Dir           string
	Index         string
	StorehouseDir string
	Summary       string
	Links         string

	Repo      string
	Branch    string
	Templates []string
}

func NewWriter(cfg *config.Config, repo, branch string, logger log.Logger) *Writer {
	templates := cfg.Mirrors.Templates
	if len(templates) == 0 {
		templates = DefaultTemplates()
	}

	return &Writer{
		Logger:        logger,
		Dir:           cfg.Output.Dir,
		Index:         cfg.Output.Index,
		StorehouseDir: cfg.Output.StorehouseDir,
		Summary:       cfg.Output.Summary,
		Links:         cfg.Output.Links,
		Repo:          repo,
		Branch:        branch,
		Templates:     templates,
	}
}

// Write lays down the whole output tree: the multi index, one file per
// warehouse, the run summary with its published-index links, and the
// mirror-links registry. Files are written in that order and the first
// failure aborts.
func (w *Writer) Write(warehouses []route.Warehouse, records []Record) error {
	if warehouses == nil {
		warehouses = []route.Warehouse{}
	}
	if records == nil {
		records = []Record{}
	}

	indexRel := w.Index
	document := struct {
		StoreHouse []route.Warehouse `json:"storeHouse"`
	}{StoreHouse: warehouses}

	if err := WriteJSON(filepath.Join(w.Dir, indexRel), document); err != nil {
		return err
	}
	w.Infof("wrote index with %d warehouses: %s", len(warehouses), path.Join(w.Dir, indexRel))

	artifacts := []Artifact{{
		ID:      "index",
		Type:    "index",
		Path:    path.Join(w.Dir, indexRel),
		Mirrors: w.mirrors(path.Join(w.Dir, indexRel)),
	}}

	for i := range warehouses {
		wh := &warehouses[i]
		rel := path.Join(w.StorehouseDir, Slug(wh.Name)+".json")
		if err := WriteJSON(filepath.Join(w.Dir, rel), wh); err != nil {
			return err
		}
		w.Debugf("wrote warehouse %q: %s", wh.Name, path.Join(w.Dir, rel))

		artifacts = append(artifacts, Artifact{
			ID:      "storehouse:" + Slug(wh.Name),
			Type:    "storehouse",
			Path:    path.Join(w.Dir, rel),
			Mirrors: w.mirrors(path.Join(w.Dir, rel)),
		})
	}

	summary := Summary{
		GeneratedAt: time.Now().Unix(),
		Pipelines:   records,
		RawIndex:    Expand(RawTemplate, w.Repo, w.Branch, path.Join(w.Dir, indexRel)),
		CDNIndex:    Expand(JSDelivrTemplate, w.Repo, w.Branch, path.Join(w.Dir, indexRel)),
		ProxyIndex:  Expand(ProxyTemplate, w.Repo, w.Branch, path.Join(w.Dir, indexRel)),
	}
	if err := WriteJSON(filepath.Join(w.Dir, w.Summary), summary); err != nil {
		return err
	}

	if err := WriteJSON(filepath.Join(w.Dir, w.Links), artifacts); err != nil {
		return err
	}

	w.Infof("published %d artifacts", len(artifacts))
	return nil
}

func (w *Writer) mirrors(publishedPath string) []string {
	mirrors := make([]string, len(w.Templates))
	for i, template := range w.Templates {
		mirrors[i] = Expand(template, w.Repo, w.Branch, publishedPath)
	}
	return mirrors
}

// WriteEntries persists a bare JSON array of entries, creating parent
// directories as needed. The builder uses it for the harvested-singles
// cache; an empty list still writes [].
func WriteEntries(name string, entries []route.Entry) error {
	if entries == nil {
		entries = []route.Entry{}
	}
	return WriteJSON(name, entries)
}

func WriteJSON(name string, v interface{}) error {
	_ = os.MkdirAll(filepath.Dir(name), 0777)

	fp, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0666)
	if err != nil {
		return &Error{Path: name, Err: err}
	}

	enc := json.NewEncoder(fp)
	enc.SetIndent("", "  ")
	err = enc.Encode(v)
	if cErr := fp.Close(); cErr != nil {
		err = multierror.Append(err, cErr)
	}
	if err != nil {
		return &Error{Path: name, Err: err}
	}
	return nil
}

func (w *Writer) Infof(format string, v ...interface{}) {
	if w.Logger != nil {
		w.Logger.Infof(format, v...)
	}
}

func (w *Writer) Debugf(format string, v ...interface{}) {
	if w.Logger != nil {
		w.Logger.Debugf(format, v...)
	}
}
