package client

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWithHTTPClient(t *testing.T) {
	custom := &http.Client{Timeout: 60 * time.Second}
	c := &Client{}
	WithHTTPClient(custom)(c)
	assert.Same(t, custom, c.httpClient)
}

func TestWithTimeout(t *testing.T) {
	c := &Client{httpClient: &http.Client{Timeout: time.Second}}
	WithTimeout(0)(c)
	assert.Equal(t, time.Second, c.httpClient.Timeout)
	WithTimeout(5 * time.Second)(c)
	assert.Equal(t, 5*time.Second, c.httpClient.Timeout)
}

func TestWithLogger(t *testing.T) {
	logger := &testLogger{}
	c := &Client{}
	WithLogger(logger)(c)
	assert.Same(t, logger, c.logger)
}

func TestWithRetryMax(t *testing.T) {
	c := &Client{retryMax: 3}
	WithRetryMax(5)(c)
	assert.Equal(t, 5, c.retryMax)
	WithRetryMax(0)(c)
	assert.Equal(t, 0, c.retryMax)
	WithRetryMax(-1)(c)
	assert.Equal(t, 0, c.retryMax, "negative values are ignored")
}

func TestWithRetryWait(t *testing.T) {
	tests := []struct {
		name      string
		min, max  time.Duration
		expectMin time.Duration
		expectMax time.Duration
	}{
		{"valid range", time.Second, 5 * time.Second, time.Second, 5 * time.Second},
		{"equal values", 2 * time.Second, 2 * time.Second, 2 * time.Second, 2 * time.Second},
		{"zero min", 0, 5 * time.Second, 0, 0},
		{"max less than min", 5 * time.Second, 2 * time.Second, 5 * time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{}
			WithRetryWait(tt.min, tt.max)(c)
			assert.Equal(t, tt.expectMin, c.retryWaitMin)
			assert.Equal(t, tt.expectMax, c.retryWaitMax)
		})
	}
}

func TestWithUserAgent(t *testing.T) {
	c := &Client{userAgent: "default"}
	WithUserAgent("")(c)
	assert.Equal(t, "default", c.userAgent)
	WithUserAgent("custom/1.0")(c)
	assert.Equal(t, "custom/1.0", c.userAgent)
}
