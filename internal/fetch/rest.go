package fetch

import (
	"context"
	"edsync/internal/ports"
	"edsync/internal/types"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/klauspost/compress/gzhttp"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultTimeout = 30 * time.Second
	maxBodyBytes   = 8 << 20
	userAgent      = "edsync/1"
)

// RESTClient implements ports.Transport over HTTP with bearer-token auth.
// A 401/403 reply is reported to the AuthSignal, if any, before the error is returned.
type RESTClient struct {
	http    *http.Client
	signal  ports.AuthSignal
	maxBody int64
}

func NewRESTClient(timeout time.Duration, signal ports.AuthSignal) *RESTClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &RESTClient{
		http: &http.Client{
			Timeout:   timeout,
			Transport: gzhttp.Transport(http.DefaultTransport),
		},
		signal:  signal,
		maxBody: maxBodyBytes,
	}
}

// wpError is the error body shape returned by the REST API.
type wpError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *RESTClient) Get(ctx context.Context, site types.Site, path string, cached bool) (json.RawMessage, error) {
	url := strings.TrimRight(site.APIRoot, "/") + "/" + strings.TrimLeft(path, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &types.TransportError{Message: fmt.Sprintf("build request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if site.Token != "" {
		req.Header.Set("Authorization", "Bearer "+site.Token)
	}
	if !cached {
		req.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &types.TransportError{Message: err.Error()}
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &types.TransportError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read body: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		terr := &types.TransportError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, body)}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			log.WithFields(log.Fields{
				"siteID": site.ID,
				"status": resp.StatusCode,
			}).Warn("request rejected as unauthenticated")
			if c.signal != nil {
				c.signal.Notify(site)
			}
		}
		return nil, terr
	}
	if int64(len(body)) > c.maxBody {
		return nil, &types.TransportError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("response too large: more than %d bytes", c.maxBody),
		}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, nil
	}
	return json.RawMessage(body), nil
}

func errorMessage(status int, body []byte) string {
	var we wpError
	if err := json.Unmarshal(body, &we); err == nil && we.Message != "" {
		return we.Message
	}
	return fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
}
