package obs

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"orgadmin.io/internal/ids"
)

func TestCanonicalPath(t *testing.T) {
	id := ids.New()
	cases := map[string]string{
		"":                                     "/",
		"/":                                    "/",
		"/metrics":                             "/metrics",
		"/api/departments/" + id:               "/api/departments/:id",
		"/api/departments/" + id + "/children": "/api/departments/:id/children",
		"/api/employees/" + id + "?x=1":        "/api/employees/:id",
		"/api/auth/login":                      "/api/auth/login",
		"/api/departments/not-an-id/children":  "/api/departments/not-an-id/children",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInstrumentCountsRequests(t *testing.T) {
	handler := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/brew", "418"))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/brew", nil))

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/brew", "418"))
	if after-before != 1 {
		t.Fatalf("expected counter to increase by 1, got %v", after-before)
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := NewLogger("loud", "json"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	logger, err := NewLogger("debug", "console")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	_ = logger.Sync()
}

func TestSetBuildInfoKeepsOneSeries(t *testing.T) {
	SetBuildInfo("1.0.0", "abc")
	SetBuildInfo("", "")
	if n := testutil.CollectAndCount(buildInfo); n != 1 {
		t.Fatalf("expected one build_info series, got %d", n)
	}
	if v := testutil.ToFloat64(buildInfo.WithLabelValues("dev", "unknown")); v != 1 {
		t.Fatalf("build_info{dev,unknown}=%v", v)
	}
}
