package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Caller invokes an API with the given params.
type Caller interface {
	Call(ctx context.Context, api API, params map[string]any) (any, error)
}

// SimulatedCaller answers every call after Latency with the API's mock
// response, or an acknowledgement echoing the params.
type SimulatedCaller struct {
	Latency time.Duration
}

func (s SimulatedCaller) Call(ctx context.Context, api API, params map[string]any) (any, error) {
	if s.Latency > 0 {
		t := time.NewTimer(s.Latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if api.Mock != nil {
		return api.Mock, nil
	}
	return map[string]any{"success": true, "api": api.ID, "params": params}, nil
}

// HTTPCaller performs real requests. GET and DELETE send params in the
// query string, other methods send them as a JSON body.
type HTTPCaller struct {
	Client *http.Client
}

func (h HTTPCaller) Call(ctx context.Context, api API, params map[string]any) (any, error) {
	method := strings.ToUpper(api.Method)
	if method == "" {
		method = http.MethodGet
	}
	u, err := url.Parse(api.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	var body io.Reader
	switch method {
	case http.MethodGet, http.MethodDelete:
		q := u.Query()
		for k, v := range params {
			q.Set(k, fmt.Sprint(v))
		}
		u.RawQuery = q.Encode()
	default:
		b, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode params: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range api.Headers {
		req.Header.Set(k, v)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%s %s: status %d", method, api.URL, resp.StatusCode)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return string(raw), nil
	}
	return out, nil
}
