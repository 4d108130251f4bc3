package portal

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-uplink/internal/credentials"
)

type fakeAP struct {
	mu       sync.Mutex
	upErr    error
	ups      []string
	downs    int
	upSignal chan struct{}
}

func (a *fakeAP) Up(_ context.Context, name, password string) error {
	a.mu.Lock()
	a.ups = append(a.ups, name+"/"+password)
	a.mu.Unlock()
	if a.upSignal != nil && a.upErr == nil {
		close(a.upSignal)
	}
	return a.upErr
}

func (a *fakeAP) Down(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.downs++
	return nil
}

func (a *fakeAP) downCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.downs
}

func newTestPortal(t *testing.T, ap *fakeAP, timeout time.Duration) (*Portal, string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	p := New(ap, Config{Listen: ln.Addr().String(), Timeout: timeout})
	p.listen = func() (net.Listener, error) { return ln, nil }
	return p, "http://" + ln.Addr().String()
}

func postForm(t *testing.T, h http.Handler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_Form(t *testing.T) {
	p := New(&fakeAP{}, Config{})
	h := p.buildRouter(make(chan Result, 1))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET / status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, field := range []string{"ssid1", "pass1", "ssid2", "pass2"} {
		if !strings.Contains(body, `name="`+field+`"`) {
			t.Errorf("form missing field %q", field)
		}
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestRouter_Health(t *testing.T) {
	p := New(&fakeAP{}, Config{})
	h := p.buildRouter(make(chan Result, 1))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestRouter_Save(t *testing.T) {
	tests := []struct {
		name       string
		form       url.Values
		wantStatus int
		wantResult bool
	}{
		{
			name:       "both pairs",
			form:       url.Values{"ssid1": {"home"}, "pass1": {"homepass"}, "ssid2": {"guest"}, "pass2": {"guestpass"}},
			wantStatus: http.StatusOK,
			wantResult: true,
		},
		{
			name:       "primary only",
			form:       url.Values{"ssid1": {"home"}, "pass1": {"homepass"}},
			wantStatus: http.StatusOK,
			wantResult: true,
		},
		{
			name:       "open primary network",
			form:       url.Values{"ssid1": {"cafe"}},
			wantStatus: http.StatusOK,
			wantResult: true,
		},
		{
			name:       "missing primary",
			form:       url.Values{"ssid2": {"guest"}, "pass2": {"guestpass"}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "whitespace primary",
			form:       url.Values{"ssid1": {"   "}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "ssid too long",
			form:       url.Values{"ssid1": {strings.Repeat("s", 33)}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "secret too long",
			form:       url.Values{"ssid1": {"home"}, "pass1": {strings.Repeat("p", 65)}},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "secondary secret without ssid",
			form:       url.Values{"ssid1": {"home"}, "pass2": {"orphan"}},
			wantStatus: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(&fakeAP{}, Config{})
			submitted := make(chan Result, 1)
			rec := postForm(t, p.buildRouter(submitted), tt.form)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			select {
			case res := <-submitted:
				if !tt.wantResult {
					t.Fatalf("unexpected result %+v", res)
				}
				if res.Primary.Label != credentials.Primary || res.Secondary.Label != credentials.Secondary {
					t.Errorf("labels = %s/%s", res.Primary.Label, res.Secondary.Label)
				}
				if res.Primary.SSID != strings.TrimSpace(tt.form.Get("ssid1")) {
					t.Errorf("primary SSID = %q", res.Primary.SSID)
				}
			default:
				if tt.wantResult {
					t.Fatal("no result submitted")
				}
			}
		})
	}
}

func TestRouter_SecondSubmissionDoesNotBlock(t *testing.T) {
	p := New(&fakeAP{}, Config{})
	submitted := make(chan Result, 1)
	h := p.buildRouter(submitted)

	form := url.Values{"ssid1": {"home"}}
	for i := 0; i < 3; i++ {
		if rec := postForm(t, h, form); rec.Code != http.StatusOK {
			t.Fatalf("submission %d status = %d", i, rec.Code)
		}
	}
	if len(submitted) != 1 {
		t.Errorf("queued results = %d, want 1", len(submitted))
	}
}

func TestParseSubmission_MissingPrimary(t *testing.T) {
	_, err := parseSubmission(url.Values{})
	if !errors.Is(err, ErrMissingPrimary) {
		t.Errorf("err = %v, want ErrMissingPrimary", err)
	}
}

func TestStart_Submission(t *testing.T) {
	ap := &fakeAP{upSignal: make(chan struct{})}
	p, base := newTestPortal(t, ap, 5*time.Second)

	go func() {
		<-ap.upSignal
		form := url.Values{"ssid1": {"home"}, "pass1": {"homepass"}, "ssid2": {"guest"}}
		resp, err := http.PostForm(base+"/save", form)
		if err == nil {
			resp.Body.Close()
		}
	}()

	res, ok := p.Start(context.Background(), "Uplink-Setup", "password123")
	if !ok {
		t.Fatal("Start() = false, want true")
	}
	if res.Primary.SSID != "home" || res.Primary.Secret != "homepass" {
		t.Errorf("primary = %+v", res.Primary)
	}
	if res.Secondary.SSID != "guest" || res.Secondary.Secret != "" {
		t.Errorf("secondary = %+v", res.Secondary)
	}
	if len(ap.ups) != 1 || ap.ups[0] != "Uplink-Setup/password123" {
		t.Errorf("ups = %v", ap.ups)
	}
	if ap.downCount() != 1 {
		t.Errorf("downs = %d, want 1", ap.downCount())
	}
}

func TestStart_Timeout(t *testing.T) {
	ap := &fakeAP{}
	p, _ := newTestPortal(t, ap, 50*time.Millisecond)

	if _, ok := p.Start(context.Background(), "Uplink-Setup", ""); ok {
		t.Fatal("Start() = true, want false on timeout")
	}
	if ap.downCount() != 1 {
		t.Errorf("downs = %d, want 1", ap.downCount())
	}
}

func TestStart_Cancelled(t *testing.T) {
	ap := &fakeAP{}
	p, _ := newTestPortal(t, ap, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, ok := p.Start(ctx, "Uplink-Setup", ""); ok {
		t.Fatal("Start() = true with cancelled context")
	}
	if ap.downCount() != 1 {
		t.Errorf("downs = %d, want 1", ap.downCount())
	}
}

func TestStart_AccessPointFailure(t *testing.T) {
	ap := &fakeAP{upErr: errors.New("no wifi device")}
	p, _ := newTestPortal(t, ap, time.Minute)

	if _, ok := p.Start(context.Background(), "Uplink-Setup", ""); ok {
		t.Fatal("Start() = true, want false")
	}
	if ap.downCount() != 0 {
		t.Errorf("downs = %d, want 0 when the AP never came up", ap.downCount())
	}
}

func TestStart_Busy(t *testing.T) {
	ap := &fakeAP{}
	p, _ := newTestPortal(t, ap, time.Minute)
	p.running.Store(true)

	if _, ok := p.Start(context.Background(), "Uplink-Setup", ""); ok {
		t.Fatal("Start() = true while already running")
	}
	if len(ap.ups) != 0 {
		t.Errorf("ups = %v, want none", ap.ups)
	}
}
