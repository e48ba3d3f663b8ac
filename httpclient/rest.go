package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
)

// PostJSON posts body and decodes the JSON response into T.
func PostJSON[T any](c *Client, ctx context.Context, path string, body any) (T, error) {
	return doJSON[T](c, ctx, http.MethodPost, path, body)
}

func doJSON[T any](c *Client, ctx context.Context, method, path string, body any) (T, error) {
	var data T
	resp, err := c.Do(ctx, Request{Method: method, Path: path, Body: body})
	if err != nil {
		return data, err
	}
	if len(resp.Body) == 0 {
		return data, NewDecodeError(resp.StatusCode, "empty response body", nil)
	}
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return data, NewDecodeError(resp.StatusCode, err.Error(), resp.Body)
	}
	return data, nil
}
