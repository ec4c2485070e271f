package reference

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchConvertsHTMLToMarkdown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><h1>Shift Register</h1><p>Serial in, parallel out.</p></body></html>"))
	}))
	defer server.Close()

	output, err := Fetch(context.Background(), Input{URL: server.URL})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if !strings.Contains(output.Markdown, "# Shift Register") {
		t.Errorf("Markdown = %q", output.Markdown)
	}
	if !strings.Contains(output.Markdown, "Serial in, parallel out.") {
		t.Errorf("Markdown = %q", output.Markdown)
	}
	if output.URL == "" {
		t.Error("final URL should be reported")
	}
}

func TestFetchRejectsEmptyURL(t *testing.T) {
	if _, err := Fetch(context.Background(), Input{}); err == nil {
		t.Error("empty URL should be rejected")
	}
}

func TestFetchNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	_, err := Fetch(context.Background(), Input{URL: server.URL})
	if err == nil || !strings.Contains(err.Error(), "unexpected status") {
		t.Errorf("expected a status error, got %v", err)
	}
}

func TestFetchToolAdvertisesSchema(t *testing.T) {
	info := FetchTool().ToolInfo()
	if info.Name != "fetch_reference" {
		t.Errorf("Name = %q", info.Name)
	}
	if info.Parameters == nil || info.Parameters.Properties["url"] == nil {
		t.Error("schema should declare the url property")
	}
}
