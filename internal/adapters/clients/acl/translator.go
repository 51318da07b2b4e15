package acl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/jsamuelsen/quote-injection-service/internal/adapters/clients"
)

// BaseAdapter wraps a resilient client and maps every failure to a domain error.
type BaseAdapter struct {
	client      *clients.Client
	serviceName string
}

// NewBaseAdapter creates a base adapter. The service name defaults to the client's.
func NewBaseAdapter(client *clients.Client, serviceName string) BaseAdapter {
	if serviceName == "" {
		serviceName = client.ServiceName()
	}

	return BaseAdapter{client: client, serviceName: serviceName}
}

// Client returns the underlying HTTP client.
func (a *BaseAdapter) Client() *clients.Client {
	return a.client
}

// ServiceName returns the name of the external service.
func (a *BaseAdapter) ServiceName() string {
	return a.serviceName
}

// Get performs a GET with query parameters and returns the body on 2xx.
// The caller must close the body.
func (a *BaseAdapter) Get(ctx context.Context, path string, query url.Values, operation, entityID string) (io.ReadCloser, error) {
	resp, err := a.client.GetQuery(ctx, path, query)

	return a.check(resp, err, operation, entityID)
}

// Post sends payload as JSON and returns the body on 2xx.
// The caller must close the body.
func (a *BaseAdapter) Post(ctx context.Context, path string, payload any, operation, entityID string) (io.ReadCloser, error) {
	resp, err := a.client.PostJSON(ctx, path, payload)

	return a.check(resp, err, operation, entityID)
}

func (a *BaseAdapter) check(resp *http.Response, err error, operation, entityID string) (io.ReadCloser, error) {
	if err != nil {
		return nil, MapHTTPError(nil, err, a.serviceName, operation, entityID)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		defer func() { _ = resp.Body.Close() }()

		return nil, MapHTTPError(resp, nil, a.serviceName, operation, entityID)
	}

	return resp.Body, nil
}

// DecodeResponse decodes a JSON body into T and closes it.
func DecodeResponse[T any](body io.ReadCloser) (T, error) {
	var result T

	if body == nil {
		return result, errors.New("response body is nil")
	}
	defer func() { _ = body.Close() }()

	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return result, fmt.Errorf("decoding response: %w", err)
	}

	return result, nil
}

// Translator converts one external record to a domain value, validating it.
type Translator[External any, Domain any] func(ext *External) (Domain, error)

// TranslateEach translates every item it can. Items that fail translation are
// left out and reported, index-tagged, in the second result, so one bad row
// cannot hide the rest of a page.
func TranslateEach[E any, D any](items []E, translate Translator[E, D]) ([]D, []error) {
	result := make([]D, 0, len(items))

	var rejected []error

	for i := range items {
		translated, err := translate(&items[i])
		if err != nil {
			rejected = append(rejected, fmt.Errorf("item %d: %w", i, err))
			continue
		}

		result = append(result, translated)
	}

	return result, rejected
}
