package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeStats struct{ n int }

func (f fakeStats) ActiveRuns() int { return f.n }

func TestObserveStore(t *testing.T) {
	before := testutil.ToFloat64(StoreOperationsTotal.WithLabelValues("file", "save", "error"))
	ObserveStore("file", "save", errors.New("disk full"))
	after := testutil.ToFloat64(StoreOperationsTotal.WithLabelValues("file", "save", "error"))
	if after-before != 1 {
		t.Errorf("error counter advanced by %v, want 1", after-before)
	}
}

func TestInstrumentHandler_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/api/v1/results/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	counter := HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/results/{id}", "404")
	before := testutil.ToFloat64(counter)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/results/abc", nil))
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("counter advanced by %v, want 1", got)
	}
}

func TestCollector_NilPool(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewCollector(nil, fakeStats{n: 2}))

	n, err := testutil.GatherAndCount(reg, "speechscope_active_runs")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d active_runs series, want 1", n)
	}
}
