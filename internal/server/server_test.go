package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestServerServesPageAndAPI(t *testing.T) {
	srv := New(Config{Host: "localhost", Port: "0", DataDir: t.TempDir(), SessionTTL: time.Minute})
	srv.Start()
	defer srv.Close()
	ts := httptest.NewServer(srv)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("page: %d %s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "/api/v1/widget/") {
		t.Error("page not bound to a session")
	}
	if srv.services.Sessions.Len() != 1 {
		t.Errorf("sessions: got %d, want 1", srv.services.Sessions.Len())
	}

	resp, err = http.Get(ts.URL + "/api/v1/style")
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), DefaultStyleURL) {
		t.Errorf("style missing default base map: %s", body)
	}

	resp, err = http.Get(ts.URL + "/nowhere")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path: got %d", resp.StatusCode)
	}

	spec := srv.OpenAPI()
	for _, p := range []string{"/api/v1/sessions", "/api/v1/widget/{session}/events", "/api/v1/stats"} {
		if spec.Paths[p] == nil {
			t.Errorf("OpenAPI missing %s", p)
		}
	}
}
