package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/palgatox64/sonusitory/internal/shared"
)

type statusBody struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Info   any    `json:"info"`
}

// infoMap returns the info object of a progress or failure stage.
func (b statusBody) infoMap() map[string]any {
	m, _ := b.Info.(map[string]any)
	return m
}

func newTestServer(t *testing.T, opts SimulatorOpts) (*httptest.Server, *bytes.Buffer) {
	t.Helper()

	var logs bytes.Buffer
	logger := shared.NewLogger(&logs)
	opts.Logger = logger

	srv := httptest.NewServer(NewSimulatorRouter(NewSimulator(opts), logger))
	t.Cleanup(srv.Close)
	return srv, &logs
}

func startJob(t *testing.T, baseURL, path string) string {
	t.Helper()

	resp, err := http.Post(baseURL+path, "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("failed to start job: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		TaskID string `json:"task_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode start response: %v", err)
	}
	if body.TaskID == "" {
		t.Fatal("expected a task id")
	}
	return body.TaskID
}

func getStatus(t *testing.T, baseURL, id string) statusBody {
	t.Helper()

	resp, err := http.Get(baseURL + "/task-status/" + id + "/")
	if err != nil {
		t.Fatalf("failed to get status: %v", err)
	}
	defer resp.Body.Close()

	var body statusBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode status: %v", err)
	}
	return body
}

func TestSimulator(t *testing.T) {
	t.Run("Runs Script To Completion", func(t *testing.T) {
		srv, _ := newTestServer(t, SimulatorOpts{})
		id := startJob(t, srv.URL, "/start-cover-scan/")

		script := DefaultScripts()["/start-cover-scan/"]
		var last statusBody
		for i := range script {
			last = getStatus(t, srv.URL, id)
			if last.Status != script[i].Status {
				t.Errorf("stage %d: expected %s, got %s", i, script[i].Status, last.Status)
			}
			if last.TaskID != id {
				t.Errorf("expected task id %s, got %s", id, last.TaskID)
			}
		}
		if last.Status != "SUCCESS" {
			t.Fatalf("expected SUCCESS at the end, got %s", last.Status)
		}
		if msg, _ := last.Info.(string); !strings.HasPrefix(msg, "¡Escaneo completado!") {
			t.Errorf("expected completion message, got %v", last.Info)
		}

		if again := getStatus(t, srv.URL, id); again.Status != "SUCCESS" {
			t.Errorf("last stage should repeat, got %s", again.Status)
		}
	})

	t.Run("Progress Info", func(t *testing.T) {
		srv, _ := newTestServer(t, SimulatorOpts{})
		id := startJob(t, srv.URL, "/start-cover-scan/")

		getStatus(t, srv.URL, id)
		getStatus(t, srv.URL, id)
		covers := getStatus(t, srv.URL, id)

		info := covers.infoMap()
		if info["step"] != "covers" || info["current"] != 1.0 || info["total"] != 4.0 {
			t.Errorf("unexpected progress info %v", covers.Info)
		}
	})

	t.Run("Unknown Task Is Pending", func(t *testing.T) {
		srv, _ := newTestServer(t, SimulatorOpts{})
		if got := getStatus(t, srv.URL, "nope"); got.Status != "PENDING" {
			t.Errorf("expected PENDING, got %s", got.Status)
		}
	})

	t.Run("Fail After", func(t *testing.T) {
		srv, _ := newTestServer(t, SimulatorOpts{FailAfter: 2})
		id := startJob(t, srv.URL, "/start-scan/")

		getStatus(t, srv.URL, id)
		getStatus(t, srv.URL, id)
		failed := getStatus(t, srv.URL, id)

		if failed.Status != "FAILURE" {
			t.Fatalf("expected FAILURE, got %s", failed.Status)
		}
		if msg, _ := failed.infoMap()["exc_message"].(string); !strings.Contains(msg, "2") {
			t.Errorf("unexpected failure message %q", msg)
		}
	})

	t.Run("Fail After Past The Last Stage", func(t *testing.T) {
		script := DefaultScripts()["/start-quick-scan/"]
		failAfter := len(script) + 2
		srv, _ := newTestServer(t, SimulatorOpts{FailAfter: failAfter})
		id := startJob(t, srv.URL, "/start-quick-scan/")

		for i := 0; i < failAfter; i++ {
			if got := getStatus(t, srv.URL, id); got.Status == "FAILURE" {
				t.Fatalf("request %d failed early", i)
			}
		}
		if got := getStatus(t, srv.URL, id); got.Status != "FAILURE" {
			t.Errorf("expected FAILURE after %d stages, got %s", failAfter, got.Status)
		}
	})

	t.Run("Independent Jobs", func(t *testing.T) {
		srv, _ := newTestServer(t, SimulatorOpts{})
		a := startJob(t, srv.URL, "/start-quick-scan/")
		b := startJob(t, srv.URL, "/start-quick-scan/")

		if a == b {
			t.Fatal("expected distinct task ids")
		}
		getStatus(t, srv.URL, a)
		getStatus(t, srv.URL, a)
		if got := getStatus(t, srv.URL, b); got.Status != "PENDING" {
			t.Errorf("job b should not advance with job a, got %s", got.Status)
		}
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		srv, _ := newTestServer(t, SimulatorOpts{})
		resp, err := http.Get(srv.URL + "/start-scan/")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
	})

	t.Run("Submit Unknown Path", func(t *testing.T) {
		sim := NewSimulator(SimulatorOpts{})
		if _, err := sim.Submit("/start-deep-scan/"); err == nil {
			t.Error("expected error for unknown path")
		}
	})

	t.Run("Logs Requests", func(t *testing.T) {
		srv, logs := newTestServer(t, SimulatorOpts{})
		resp, err := http.Get(srv.URL + "/healthz")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("expected 200, got %d", resp.StatusCode)
		}
		if !strings.Contains(logs.String(), "/healthz") {
			t.Errorf("expected request to be logged, got %q", logs.String())
		}
	})
}

func TestBasicRouter(t *testing.T) {
	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		router := NewBasicRouter()
		router.Use(mw("first"), mw("second"))
		router.Handle(http.MethodGet, "/x", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		}))

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		if strings.Join(order, ",") != "first,second,handler" {
			t.Errorf("unexpected order %v", order)
		}
	})

	t.Run("Recover", func(t *testing.T) {
		router := NewBasicRouter()
		router.Use(Recover(shared.NewLogger(&bytes.Buffer{})))
		router.Handle(http.MethodGet, "/panic", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestServer(t *testing.T) {
	t.Run("Stops On Context Cancel", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to listen: %v", err)
		}

		logger := shared.NewLogger(&bytes.Buffer{})
		srv := New(ln.Addr().String(), NewSimulatorRouter(NewSimulator(SimulatorOpts{Logger: logger}), logger), logger)

		ctx, cancel := context.WithCancel(context.Background())
		errs := make(chan error, 1)
		go func() { errs <- srv.Serve(ctx, ln) }()

		var resp *http.Response
		for range 50 {
			resp, err = http.Get("http://" + ln.Addr().String() + "/healthz")
			if err == nil {
				break
			}
			time.Sleep(20 * time.Millisecond)
		}
		if err != nil {
			t.Fatalf("server did not come up: %v", err)
		}
		resp.Body.Close()

		cancel()
		select {
		case err := <-errs:
			if err != nil {
				t.Errorf("expected clean shutdown, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("server did not stop")
		}
	})

	t.Run("Listen Error", func(t *testing.T) {
		logger := shared.NewLogger(&bytes.Buffer{})
		srv := New("256.0.0.1:99999", http.NotFoundHandler(), logger)
		if err := srv.ListenAndServe(context.Background()); err == nil {
			t.Error("expected listen error")
		}
	})
}
