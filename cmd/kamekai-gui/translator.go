package main

import (
	"context"
	"sync"

	"github.com/oukeidos/kamekai/internal/translation"
)

// endpointTranslator sends each submission to the endpoint current at the
// time of the call, so a changed setting applies without a restart.
type endpointTranslator struct {
	mu     sync.Mutex
	client *translation.Client
}

func newEndpointTranslator(endpoint string) *endpointTranslator {
	return &endpointTranslator{client: translation.NewClient(endpoint)}
}

func (t *endpointTranslator) SetEndpoint(endpoint string) {
	t.mu.Lock()
	t.client = translation.NewClient(endpoint)
	t.mu.Unlock()
}

func (t *endpointTranslator) Endpoint() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.client.Endpoint()
}

func (t *endpointTranslator) Translate(ctx context.Context, credential, text string) (*translation.Response, error) {
	t.mu.Lock()
	client := t.client
	t.mu.Unlock()
	return client.Translate(ctx, credential, text)
}
