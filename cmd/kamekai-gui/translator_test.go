package main

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/oukeidos/kamekai/internal/mockserver"
)

func TestEndpointTranslatorFollowsSetting(t *testing.T) {
	healthy := httptest.NewServer(mockserver.New(mockserver.Options{}).Handler())
	defer healthy.Close()
	failing := httptest.NewServer(mockserver.New(mockserver.Options{FailStatus: 503}).Handler())
	defer failing.Close()

	tr := newEndpointTranslator(failing.URL)
	if _, err := tr.Translate(context.Background(), "abc.def.ghi", "Hello."); err == nil {
		t.Fatalf("expected failure from %s", tr.Endpoint())
	}

	tr.SetEndpoint(healthy.URL)
	if tr.Endpoint() != healthy.URL {
		t.Fatalf("endpoint = %q", tr.Endpoint())
	}
	resp, err := tr.Translate(context.Background(), "abc.def.ghi", "Hello.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Translations) != 1 {
		t.Fatalf("expected one translation, got %d", len(resp.Translations))
	}
}
