package rotator

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"
)

// 起一个假的 HTTP 正向代理：回显端点是 http:// 的话，
// transport 会把绝对 URI 的 GET 直接发给代理，这里直接应答即可。
func newFakeProxy(t *testing.T, handler http.HandlerFunc) (hostPort string, cleanup func()) {
	t.Helper()
	ts := httptest.NewServer(handler)
	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse proxy url: %v", err)
	}
	return u.Host, ts.Close
}

func newEgressServer(t *testing.T, proxyHostPort string) *Server {
	t.Helper()
	srv, err := NewBuilder().
		WithConfigPath(filepath.Join(t.TempDir(), "clients-config.json")).
		WithAPICredentials(testAPIUser, testAPIPass).
		WithLogger(log.New(io.Discard, "", 0)).
		WithIPEchoURL("http://ip-echo.invalid/?format=json").
		WithEgressTimeout(2 * time.Second).
		Build()
	if err != nil {
		t.Fatalf("build server: %v", err)
	}
	if _, _, err := srv.registry.CreateClient("acct1", "secret1", []string{proxyHostPort + ":a:b"}); err != nil {
		t.Fatalf("create client: %v", err)
	}
	return srv
}

func TestMyIPThroughProxy(t *testing.T) {
	var sawRequest bool
	hostPort, closeProxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		sawRequest = true
		if r.Host != "ip-echo.invalid" {
			t.Errorf("proxy received wrong host: %s", r.Host)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"ip":"198.51.100.7"}`)
	})
	defer closeProxy()

	srv := newEgressServer(t, hostPort)
	h := srv.Handler()

	rec, body := doRequest(t, h, http.MethodGet, "/myip", "acct1", "secret1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("myip: %d %v", rec.Code, body)
	}
	if !sawRequest {
		t.Fatalf("request never reached the proxy")
	}
	if body["ip"] != "198.51.100.7" {
		t.Fatalf("unexpected ip: %v", body["ip"])
	}
	if body["client"] != "acct1" || body["index"].(float64) != 0 {
		t.Fatalf("unexpected response: %v", body)
	}
	if srv.blockedCount() != 0 {
		t.Fatalf("successful check must not mark the proxy blocked")
	}
}

func TestMyIPUpstreamFailureMarksBlocked(t *testing.T) {
	hostPort, closeProxy := newFakeProxy(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	defer closeProxy()

	srv := newEgressServer(t, hostPort)
	h := srv.Handler()

	rec, body := doRequest(t, h, http.MethodGet, "/myip", "acct1", "secret1", nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d %v", rec.Code, body)
	}
	if body["error"] != "Failed to get IP" {
		t.Fatalf("unexpected error body: %v", body)
	}
	if srv.blockedCount() != 1 {
		t.Fatalf("failed check should mark exactly one proxy blocked, got %d", srv.blockedCount())
	}

	// 标记只是告警，不影响轮换。
	rec, _ = doRequest(t, h, http.MethodGet, "/current", "acct1", "secret1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("blocked proxy must still be served: %d", rec.Code)
	}
}

func TestMyIPNoProxies(t *testing.T) {
	srv := newEgressServer(t, "127.0.0.1:1")
	if _, _, err := srv.registry.CreateClient("empty", "pw", nil); err != nil {
		t.Fatalf("create client: %v", err)
	}
	rec, _ := doRequest(t, srv.Handler(), http.MethodGet, "/myip", "empty", "pw", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for empty pool, got %d", rec.Code)
	}
}
