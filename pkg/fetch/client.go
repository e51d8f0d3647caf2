// Package fetch wraps net/http for the handful of GET requests the
// pipeline issues. Every request targets a configured or harvested URL
// verbatim; there is no pagination and no retrying, a failed request is
// failed for the whole run.
package fetch

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"time"

	"multiroute/pkg/log"
)

const (
	DefaultUserAgent   = "multiroute/1.0.0"
	DefaultHTTPTimeout = 10 * time.Second

	hUserAgent = "User-Agent"
)

func New(options ...Option) *Client {
	c := &Client{
		Client: http.Client{Timeout: DefaultHTTPTimeout},
	}

	for _, opt := range options {
		opt(c)
	}

	return c
}

type Client struct {
	http.Client

	userAgent *string
	headers   map[string]string
	logger    log.Logger
}

func (c *Client) UserAgent() string {
	s := c.userAgent
	if s == nil {
		return DefaultUserAgent
	}
	return *s
}

func (c *Client) Get(ctx context.Context, rawurl string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, rawurl)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// GetBytes issues a GET and returns the full response body. Non-2xx
// statuses surface as a ResponseError.
func (c *Client) GetBytes(ctx context.Context, rawurl string) ([]byte, error) {
	res, err := c.Get(ctx, rawurl)
	if err != nil {
		return nil, err
	}

	data, err := ioutil.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if err := res.Body.Close(); err != nil {
		return nil, err
	}
	return data, nil
}

func (c *Client) GetString(ctx context.Context, rawurl string) (string, error) {
	data, err := c.GetBytes(ctx, rawurl)
	return string(data), err
}

func (c *Client) NewRequest(ctx context.Context, method, rawurl string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawurl, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set(hUserAgent, c.UserAgent())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	c.logRequest(req)

	res, err := c.Client.Do(req)
	c.logResponse(res)
	if err == nil {
		err = CheckResponseError(res)
	}

	return res, err
}

func (c *Client) logRequest(req *http.Request) {
	if req == nil {
		return
	}
	if req.URL != nil {
		c.Infof("%s: %s", req.Method, req.URL)
	}
}

func (c *Client) logResponse(res *http.Response) {
	if res == nil {
		c.Debugf("nil response")
		return
	}
	c.Debugf("RECV %03d: %s", res.StatusCode, res.Status)
	c.logBody(&res.Body, "RESP: %s")
}

func (c *Client) logBody(body *io.ReadCloser, format string) {
	if body == nil {
		return
	}
	if *body == nil {
		return
	}
	data, _ := ioutil.ReadAll(*body)
	if len(data) > 0 {
		c.Tracef(format, string(data))
	}
	*body = ioutil.NopCloser(bytes.NewReader(data))
}

func (c *Client) Logf(level log.Level, format string, v ...interface{}) {
	l := c.logger
	if l == nil {
		return
	}

	l.Logf(level, format, v...)
}

func (c *Client) Errorf(format string, v ...interface{}) {
	c.Logf(log.LevelError, format, v...)
}

func (c *Client) Warnf(format string, v ...interface{}) {
	c.Logf(log.LevelWarn, format, v...)
}

func (c *Client) Infof(format string, v ...interface{}) {
	c.Logf(log.LevelInfo, format, v...)
}

func (c *Client) Debugf(format string, v ...interface{}) {
	c.Logf(log.LevelDebug, format, v...)
}

func (c *Client) Tracef(format string, v ...interface{}) {
	c.Logf(log.LevelTrace, format, v...)
}
