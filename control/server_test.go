package control

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lixenwraith/blinker/blink"
	"github.com/lixenwraith/blinker/clock"
	"github.com/lixenwraith/blinker/status"
)

// inlineExecutor runs work on the calling goroutine; tests are single-threaded
type inlineExecutor struct{}

func (inlineExecutor) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn()
	return nil
}

type stubTarget struct {
	visible  bool
	disposed bool
}

func (s *stubTarget) Visible() bool     { return s.visible }
func (s *stubTarget) SetVisible(v bool) { s.visible = v }
func (s *stubTarget) Disposed() bool    { return s.disposed }

type fixture struct {
	srv    *Server
	clk    *clock.Manual
	reg    *status.Registry
	target *stubTarget
	toggle *blink.Toggle
	id     uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clk:    clock.NewManual(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		reg:    status.NewRegistry(),
		target: &stubTarget{},
	}
	tg, err := blink.New(f.clk, f.target, blink.WithName("cursor"), blink.WithStatus(f.reg))
	if err != nil {
		t.Fatalf("blink.New() error = %v", err)
	}
	f.toggle = tg
	f.srv = NewServer(inlineExecutor{}, f.reg)
	f.id = f.srv.Add(tg)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) ToggleState {
	t.Helper()
	var st ToggleState
	if err := json.NewDecoder(rec.Body).Decode(&st); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return st
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestStartStop(t *testing.T) {
	f := newFixture(t)
	base := "/toggles/" + f.id.String()

	rec := f.do(t, http.MethodPost, base+"/start", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("start status = %d, body %s", rec.Code, rec.Body)
	}
	if st := decodeState(t, rec); !st.Running || st.Name != "cursor" || st.ID != f.id.String() {
		t.Errorf("state after start = %+v", st)
	}

	f.clk.Advance(300 * time.Millisecond)

	rec = f.do(t, http.MethodGet, base, "")
	st := decodeState(t, rec)
	if st.Ticks != 3 || !st.Visible {
		t.Errorf("state after 300ms = %+v, want 3 ticks visible", st)
	}

	rec = f.do(t, http.MethodPost, base+"/stop", "")
	if st := decodeState(t, rec); st.Running {
		t.Errorf("state after stop = %+v", st)
	}
	if f.toggle.IsBlinking() {
		t.Error("toggle still blinking after stop")
	}
}

func TestSetInterval(t *testing.T) {
	f := newFixture(t)
	path := "/toggles/" + f.id.String() + "/interval"

	rec := f.do(t, http.MethodPut, path, `{"interval_ms": 250}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if st := decodeState(t, rec); st.IntervalMS != 250 {
		t.Errorf("interval_ms = %v, want 250", st.IntervalMS)
	}
	if f.toggle.Interval() != 250*time.Millisecond {
		t.Errorf("Interval() = %v", f.toggle.Interval())
	}

	for _, body := range []string{`{"interval_ms": 0}`, `{"interval_ms": -10}`, `{"interval_ms": 1e13}`, `{"interval_ms": 1e300}`} {
		if rec := f.do(t, http.MethodPut, path, body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
	if rec := f.do(t, http.MethodPut, path, `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d, want 400", rec.Code)
	}
	if f.toggle.Interval() != 250*time.Millisecond {
		t.Errorf("rejected updates changed interval to %v", f.toggle.Interval())
	}
}

func TestUnknownAndMalformedIDs(t *testing.T) {
	f := newFixture(t)

	if rec := f.do(t, http.MethodGet, "/toggles/"+uuid.NewString(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/toggles/not-a-uuid", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("malformed id status = %d, want 400", rec.Code)
	}
	if rec := f.do(t, http.MethodGet, "/toggles/"+f.id.String()+"/start", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET on start status = %d, want 405", rec.Code)
	}
}

func TestStartConflicts(t *testing.T) {
	f := newFixture(t)
	path := "/toggles/" + f.id.String() + "/start"

	f.target.disposed = true
	if rec := f.do(t, http.MethodPost, path, ""); rec.Code != http.StatusConflict {
		t.Errorf("stale target status = %d, want 409", rec.Code)
	}

	f.target.disposed = false
	f.toggle.Close()
	if rec := f.do(t, http.MethodPost, path, ""); rec.Code != http.StatusConflict {
		t.Errorf("closed toggle status = %d, want 409", rec.Code)
	}
}

func TestListAndRemove(t *testing.T) {
	f := newFixture(t)
	other, _ := blink.New(f.clk, &stubTarget{}, blink.WithName("alert"))
	otherID := f.srv.Add(other)

	rec := f.do(t, http.MethodGet, "/toggles", "")
	var states []ToggleState
	if err := json.NewDecoder(rec.Body).Decode(&states); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(states) != 2 || states[0].Name != "alert" || states[1].Name != "cursor" {
		t.Errorf("list = %+v, want alert then cursor", states)
	}

	if !f.srv.Remove(otherID) || f.srv.Remove(otherID) {
		t.Error("Remove() did not report membership correctly")
	}
	if rec := f.do(t, http.MethodGet, "/toggles/"+otherID.String(), ""); rec.Code != http.StatusNotFound {
		t.Errorf("removed toggle status = %d, want 404", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	f.toggle.Start()
	f.clk.Advance(200 * time.Millisecond)

	rec := f.do(t, http.MethodGet, "/metrics", "")
	var snap map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap["blink.cursor.state"] != "running" {
		t.Errorf("state = %v, want running", snap["blink.cursor.state"])
	}
	if snap["blink.cursor.ticks"] != float64(2) {
		t.Errorf("ticks = %v, want 2", snap["blink.cursor.ticks"])
	}
}

func TestExecutorFailure(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/toggles/"+f.id.String()+"/start", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	if f.toggle.IsBlinking() {
		t.Error("toggle started despite executor failure")
	}
}
