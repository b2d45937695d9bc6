package widget

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/bikemap/internal/layers"
	"github.com/joeblew999/bikemap/internal/service"
	"github.com/joeblew999/bikemap/internal/templates"
)

type fixture struct {
	srv      *httptest.Server
	sessions *service.SessionService
	session  string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	renderer, err := templates.Default()
	if err != nil {
		t.Fatal(err)
	}
	bus := service.NewEventBus()
	sessions := service.NewSessionService(time.Minute, bus)
	sess, err := sessions.Create()
	if err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("test", "1.0.0"))
	New(sessions, bus, nil, renderer).RegisterRoutes(api)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &fixture{srv: srv, sessions: sessions, session: sess.ID}
}

func (f *fixture) url(path string) string {
	return f.srv.URL + "/api/v1/widget/" + f.session + path
}

func readAll(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestTreeRendersEveryCheckbox(t *testing.T) {
	f := setup(t)
	resp, err := http.Get(f.url("/tree"))
	if err != nil {
		t.Fatal(err)
	}
	body := readAll(t, resp)
	if !strings.Contains(body, "datastar-patch-elements") {
		t.Fatalf("expected a patch event, got %q", body)
	}
	for _, id := range []string{"layers", "signed-routes", "shoulder-lanes", "designated-cycle-paths"} {
		if !strings.Contains(body, `id="node-`+id+`"`) {
			t.Errorf("missing node %s", id)
		}
	}
}

func TestToggleUpdatesSession(t *testing.T) {
	f := setup(t)
	resp, err := http.Post(f.url("/toggle/signed-routes"), "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	body := readAll(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", resp.StatusCode, body)
	}
	if !strings.Contains(body, `aria-checked="mixed"`) {
		t.Error("routes group should render as mixed")
	}

	sess, _ := f.sessions.Get(f.session)
	for _, n := range sess.State().Nodes {
		if n.ID == string(layers.SignedRoutes) && n.Checked {
			t.Error("signed routes still checked")
		}
	}
}

func TestToggleUnknown(t *testing.T) {
	f := setup(t)
	for _, u := range []string{
		f.url("/toggle/nope"),
		f.srv.URL + "/api/v1/widget/missing/toggle/signed-routes",
	} {
		resp, err := http.Post(u, "application/json", nil)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: got %d, want 404", u, resp.StatusCode)
		}
	}
}

func TestSetAllReadsSignal(t *testing.T) {
	f := setup(t)
	resp, err := http.Post(f.url("/all"), "application/json", strings.NewReader(`{"checked":false}`))
	if err != nil {
		t.Fatal(err)
	}
	readAll(t, resp)

	sess, _ := f.sessions.Get(f.session)
	for l, v := range sess.State().Visibility {
		if v {
			t.Errorf("%s still visible", l)
		}
	}
}

func TestEventsStreamsMapCommands(t *testing.T) {
	f := setup(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, f.url("/events"), nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	lines := bufio.NewScanner(resp.Body)

	waitFor := func(want string) {
		t.Helper()
		for lines.Scan() {
			if strings.Contains(lines.Text(), want) {
				return
			}
		}
		t.Fatalf("stream ended before %q: %v", want, lines.Err())
	}

	// The initial sync replays the whole map state.
	waitFor(MapCommandEvent)
	waitFor(layers.PathsLayer)

	if _, err := f.sessions.Click(f.session, layers.AllowedPaths, false); err != nil {
		t.Fatal(err)
	}
	waitFor(`node-allowed-cycle-paths`)
}
