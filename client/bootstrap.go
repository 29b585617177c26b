package client

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"rtvikit/core"
	"rtvikit/transports"
)

// bootstrap performs the one POST that asks the server to start a bot and
// returns the connection info it answers with.
func (c *Client) bootstrap(ctx context.Context) (transports.SessionParams, error) {
	p := c.opts.Params
	url := p.connectURL()

	body := p.Request
	if len(body) == 0 {
		body = []byte("{}")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return transports.SessionParams{}, &core.BootstrapError{URL: url, Err: err}
	}
	if p.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.APIKey)
	}
	for k, v := range p.Headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transports.SessionParams{}, &core.BootstrapError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transports.SessionParams{}, &core.BootstrapError{URL: url, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return transports.SessionParams{}, &core.BootstrapError{URL: url, Status: resp.StatusCode, Body: string(respBody)}
	}

	params, err := transports.ParseSessionParams(respBody)
	if err != nil {
		return transports.SessionParams{}, &core.BootstrapError{URL: url, Status: resp.StatusCode, Body: string(respBody), Err: err}
	}
	return params, nil
}
