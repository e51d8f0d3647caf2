package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/hashicorp/errwrap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"multiroute/pkg/fetch"
	"multiroute/pkg/route"
)

func boolPtr(b bool) *bool { return &b }

func TestPolicyActive(t *testing.T) {
	assert.False(t, (*Policy)(nil).Active())
	assert.True(t, (&Policy{}).Active())
	assert.True(t, (&Policy{Enabled: boolPtr(true)}).Active())
	assert.False(t, (&Policy{Enabled: boolPtr(false)}).Active())
}

func TestFilterDisabledMakesNoRequests(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	candidates := []route.Entry{{Name: "线路1", URL: srv.URL + "/1"}}
	p := New(fetch.New(), nil)

	kept, err := p.Filter(context.Background(), candidates, nil)
	require.NoError(t, err)
	assert.Equal(t, candidates, kept)
	assert.Zero(t, atomic.LoadInt32(&hits))

	kept, err = p.Filter(context.Background(), candidates, &Policy{Enabled: boolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, candidates, kept)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestFilterDropsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte(`{"routes":[]}`))
		case "/half":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	candidates := []route.Entry{
		{Name: "线路1", URL: srv.URL + "/half"},
		{Name: "线路2", URL: srv.URL + "/ok"},
		{Name: "线路3", URL: srv.URL + "/gone"},
	}

	kept, err := New(fetch.New(), nil).Filter(context.Background(), candidates, &Policy{})
	require.Error(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, srv.URL+"/ok", kept[0].URL)

	wrapper, ok := err.(errwrap.Wrapper)
	require.True(t, ok)
	assert.Len(t, wrapper.WrappedErrors(), 2)
}

func TestFilterRequireJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/json" {
			_, _ = w.Write([]byte(`[{"name":"x"}]`))
			return
		}
		_, _ = w.Write([]byte("<!doctype html>"))
	}))
	defer srv.Close()

	candidates := []route.Entry{
		{Name: "线路1", URL: srv.URL + "/html"},
		{Name: "线路2", URL: srv.URL + "/json"},
	}

	kept, err := New(fetch.New(), nil).Filter(context.Background(), candidates, &Policy{RequireJSON: true})
	require.Error(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, "线路2", kept[0].Name)
}

func TestFilterCapStopsProbing(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	candidates := []route.Entry{
		{Name: "线路1", URL: srv.URL + "/1"},
		{Name: "线路2", URL: srv.URL + "/2"},
		{Name: "线路3", URL: srv.URL + "/3"},
	}

	kept, err := New(fetch.New(), nil).Filter(context.Background(), candidates, &Policy{MaxCount: 2})
	require.NoError(t, err)
	assert.Len(t, kept, 2)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestValidationErrorMessage(t *testing.T) {
	err := ValidationError{URL: "http://h/1", Err: errNotJSON}
	assert.Contains(t, err.Error(), "http://h/1")
	assert.Contains(t, err.Error(), "not valid JSON")
}
