package build

import (
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/errwrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiroute/internal/config"
	"multiroute/pkg/log"
	"multiroute/pkg/probe"
	"multiroute/pkg/route"
)

func quietBuilder(cfg *config.Config) *Builder {
	return &Builder{
		Logger: log.NewLogger(log.LevelError, ioutil.Discard, ""),
		Config: cfg,
	}
}

func tempCache(t *testing.T) string {
	t.Helper()
	dir, err := ioutil.TempDir("", "build")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return filepath.Join(dir, "qingning_single.json")
}

func readEntries(t *testing.T, name string) []route.Entry {
	t.Helper()
	data, err := ioutil.ReadFile(name)
	require.NoError(t, err)
	var entries []route.Entry
	require.NoError(t, json.Unmarshal(data, &entries))
	return entries
}

func baseConfig() *config.Config {
	cfg := new(config.Config)
	cfg.Defaults.TimeoutSeconds = 5
	return cfg
}

func TestRunMergesDeclaredAndHarvestedWarehouses(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/multi.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"name":"🌹t主仓库🌹","urls":[{"name":"line1","url":"http://x/1"}]}]`))
	})
	mux.HandleFunc("/README.md", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# 聚合\nhttp://a/1\nhttp://b/1\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cache := tempCache(t)
	cfg := baseConfig()

	primary := config.Pipeline{ID: "primary", Kind: config.KindRemoteStorehouse}
	primary.Source.URL = srv.URL + "/multi.json"

	qingning := config.Pipeline{
		ID:                 "qingning",
		Kind:               config.KindQingningRemote,
		SingleNameTemplate: "线路{n}",
		Cache:              cache,
	}
	qingning.Source.URL = srv.URL + "/README.md"
	qingning.Store.Name = "🌹warehouse🌹"

	cfg.Pipelines = []config.Pipeline{primary, qingning}

	res, err := quietBuilder(cfg).Run(context.Background())
	require.NoError(t, err)
	require.Nil(t, res.Warnings)

	assert.Equal(t, []route.Warehouse{
		{Name: "🌹t主仓库🌹", URLs: []route.Entry{{Name: "line1", URL: "http://x/1"}}},
		{Name: "🌹warehouse🌹", URLs: []route.Entry{
			{Name: "线路1", URL: "http://a/1"},
			{Name: "线路2", URL: "http://b/1"},
		}},
	}, res.Warehouses)

	require.Len(t, res.Records, 2)
	assert.Equal(t, "primary", res.Records[0].ID)
	assert.Equal(t, 1, res.Records[0].Warehouses)
	assert.Empty(t, res.Records[0].Error)
	assert.Equal(t, 1, res.Records[1].Warehouses)

	assert.Equal(t, []route.Entry{
		{Name: "线路1", URL: "http://a/1"},
		{Name: "线路2", URL: "http://b/1"},
	}, readEntries(t, cache))
}

func TestRunRenumbersValidatedCandidates(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/README.md", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(srv.URL + "/bad\n" + srv.URL + "/good\n"))
	})
	mux.HandleFunc("/bad", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<!doctype html>"))
	})
	mux.HandleFunc("/good", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"routes":[]}`))
	})

	cache := tempCache(t)
	cfg := baseConfig()

	qingning := config.Pipeline{
		ID:                 "qingning",
		Kind:               config.KindQingningRemote,
		SingleNameTemplate: "线路{n}",
		Cache:              cache,
		Validation:         &probe.Policy{RequireJSON: true},
	}
	qingning.Source.URL = srv.URL + "/README.md"
	qingning.Store.Name = "🌹warehouse🌹"
	cfg.Pipelines = []config.Pipeline{qingning}

	res, err := quietBuilder(cfg).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Warehouses, 1)
	assert.Equal(t, []route.Entry{
		{Name: "线路1", URL: srv.URL + "/good"},
	}, res.Warehouses[0].URLs)

	// The cache keeps the pre-validation list under its original numbering.
	assert.Equal(t, []route.Entry{
		{Name: "线路1", URL: srv.URL + "/bad"},
		{Name: "线路2", URL: srv.URL + "/good"},
	}, readEntries(t, cache))

	require.Error(t, res.Warnings)
	wrapper, ok := res.Warnings.(errwrap.Wrapper)
	require.True(t, ok)
	require.Len(t, wrapper.WrappedErrors(), 1)
	_, ok = wrapper.WrappedErrors()[0].(probe.ValidationError)
	assert.True(t, ok)
}

func TestRunDegradesFailedRemoteSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := baseConfig()

	broken := config.Pipeline{ID: "broken", Kind: config.KindRemoteStorehouse}
	broken.Source.URL = srv.URL + "/multi.json"

	locals := config.Pipeline{
		ID:   "locals",
		Kind: config.KindLocalURLsStorehouse,
		URLs: []route.Entry{{Name: "线路一", URL: "http://h/1"}},
	}
	locals.Store.Name = "本地线路"

	cfg.Pipelines = []config.Pipeline{broken, locals}

	res, err := quietBuilder(cfg).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Warehouses, 1)
	assert.Equal(t, "本地线路", res.Warehouses[0].Name)

	require.Len(t, res.Records, 2)
	assert.NotEmpty(t, res.Records[0].Error)
	assert.Zero(t, res.Records[0].Warehouses)
	assert.Empty(t, res.Records[1].Error)

	require.Error(t, res.Warnings)
	wrapper, ok := res.Warnings.(errwrap.Wrapper)
	require.True(t, ok)
	require.Len(t, wrapper.WrappedErrors(), 1)
	_, ok = wrapper.WrappedErrors()[0].(*FetchError)
	assert.True(t, ok)
}

func TestRunLocalStorehouseAppliesFilters(t *testing.T) {
	dir, err := ioutil.TempDir("", "local")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	listing := `{"storeHouse":[
		{"name":"常规仓","urls":[
			{"name":"ok","url":"http://h/1"},
			{"name":"bad","url":"http://ads.example/2"}
		]},
		{"name":"测试仓","urls":[{"name":"x","url":"http://h/3"}]}
	]}`
	path := filepath.Join(dir, "backup.json")
	require.NoError(t, ioutil.WriteFile(path, []byte(listing), 0666))

	cfg := baseConfig()
	cfg.Filters = route.Rules{
		BlockedKeywords: []string{"测试"},
		BlockedDomains:  []string{"ads.example"},
	}

	local := config.Pipeline{ID: "backup", Kind: config.KindLocalStorehouse}
	local.Source.Path = path
	cfg.Pipelines = []config.Pipeline{local}

	res, err := quietBuilder(cfg).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Warehouses, 1)
	assert.Equal(t, "常规仓", res.Warehouses[0].Name)
	require.Len(t, res.Warehouses[0].URLs, 1)
	assert.Equal(t, "http://h/1", res.Warehouses[0].URLs[0].URL)
}

func TestRunEmptyHarvestStillWritesCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	cache := tempCache(t)
	cfg := baseConfig()

	qingning := config.Pipeline{
		ID:                 "qingning",
		Kind:               config.KindQingningRemote,
		SingleNameTemplate: "线路{n}",
		Cache:              cache,
	}
	qingning.Source.URL = srv.URL + "/README.md"
	qingning.Store.Name = "🌹warehouse🌹"
	cfg.Pipelines = []config.Pipeline{qingning}

	res, err := quietBuilder(cfg).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, res.Warehouses)
	assert.Empty(t, readEntries(t, cache))
	require.Len(t, res.Records, 1)
	assert.NotEmpty(t, res.Records[0].Error)
	require.Error(t, res.Warnings)
}

func TestRunReadmeFallbackOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/primary.md", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/mirror.md", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("http://a/1\n"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cache := tempCache(t)
	cfg := baseConfig()

	qingning := config.Pipeline{
		ID:                 "qingning",
		Kind:               config.KindQingningRemote,
		SingleNameTemplate: "线路{n}",
		Cache:              cache,
	}
	qingning.Source.URLs = []string{srv.URL + "/primary.md", srv.URL + "/mirror.md"}
	qingning.Store.Name = "🌹warehouse🌹"
	cfg.Pipelines = []config.Pipeline{qingning}

	res, err := quietBuilder(cfg).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Warehouses, 1)
	require.Len(t, res.Warehouses[0].URLs, 1)
	assert.Equal(t, "http://a/1", res.Warehouses[0].URLs[0].URL)
	assert.Nil(t, res.Warnings)
}

func TestRunUnknownKindIsFatal(t *testing.T) {
	cfg := baseConfig()
	cfg.Pipelines = []config.Pipeline{{ID: "x", Kind: "copy_route"}}

	_, err := quietBuilder(cfg).Run(context.Background())
	require.Error(t, err)
	_, ok := err.(*config.Error)
	assert.True(t, ok, "expected *config.Error, got %T", err)
}
