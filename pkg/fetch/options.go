package fetch

import (
	"time"

	"multiroute/pkg/log"
)

type Option func(c *Client)

func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = &userAgent
	}
}

func WithHTTPTimeout(httpTimeout time.Duration) Option {
	return func(c *Client) {
		c.Timeout = httpTimeout
	}
}

// WithHeaders merges extra headers onto every outbound request, on top
// of the User-Agent. Later options override earlier keys.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		if len(headers) == 0 {
			return
		}
		if c.headers == nil {
			c.headers = make(map[string]string, len(headers))
		}
		for k, v := range headers {
			c.headers[k] = v
		}
	}
}

func WithLogger(logger log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}
