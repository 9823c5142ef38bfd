package client

import (
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// authServer simulates the API: /data requires the session cookie,
// /refresh-token issues it. refreshDelay holds the refresh open so
// concurrent 401s pile up behind one flight.
type authServer struct {
	srv          *httptest.Server
	refreshCalls atomic.Int64
	refreshFails bool
	refreshDelay time.Duration
}

func newAuthServer(t *testing.T) *authServer {
	t.Helper()
	a := &authServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("access_token"); err != nil || c.Value != "fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/forbidden", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc("/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		a.refreshCalls.Add(1)
		if a.refreshDelay > 0 {
			time.Sleep(a.refreshDelay)
		}
		if a.refreshFails {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: "access_token", Value: "fresh", Path: "/"})
		w.WriteHeader(http.StatusOK)
	})

	a.srv = httptest.NewServer(mux)
	t.Cleanup(a.srv.Close)
	return a
}

func (a *authServer) client(t *testing.T, onExpired func()) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}

	coordinator := &Coordinator{
		RefreshURL:       a.srv.URL + "/refresh-token",
		RefreshClient:    &http.Client{Jar: jar},
		Jar:              jar,
		OnSessionExpired: onExpired,
	}
	return &http.Client{Jar: jar, Transport: coordinator}
}

func TestConcurrent401sCollapseToOneRefresh(t *testing.T) {
	server := newAuthServer(t)
	server.refreshDelay = 100 * time.Millisecond
	client := server.client(t, nil)

	const callers = 5
	var wg sync.WaitGroup
	statuses := make([]int, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := client.Get(server.srv.URL + "/data")
			if err != nil {
				errs[i] = err
				return
			}
			defer resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if statuses[i] != http.StatusOK {
			t.Fatalf("caller %d got status %d", i, statuses[i])
		}
	}
	if calls := server.refreshCalls.Load(); calls != 1 {
		t.Fatalf("expected exactly 1 refresh call, got %d", calls)
	}
}

func TestFailedRefreshExpiresSession(t *testing.T) {
	server := newAuthServer(t)
	server.refreshFails = true
	server.refreshDelay = 50 * time.Millisecond

	var expired atomic.Int64
	client := server.client(t, func() { expired.Add(1) })

	const callers = 3
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := client.Get(server.srv.URL + "/data")
			if err == nil {
				resp.Body.Close()
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if !errors.Is(errs[i], ErrSessionExpired) {
			t.Fatalf("caller %d: expected ErrSessionExpired, got %v", i, errs[i])
		}
	}
	if calls := server.refreshCalls.Load(); calls != 1 {
		t.Fatalf("expected 1 refresh call, got %d", calls)
	}
	if n := expired.Load(); n != 1 {
		t.Fatalf("expected logout hook to fire once, fired %d times", n)
	}
}

// A 401 on the replayed request is the real answer, not a trigger for
// another refresh cycle.
func TestReplayed401Propagates(t *testing.T) {
	server := newAuthServer(t)
	client := server.client(t, nil)

	resp, err := client.Get(server.srv.URL + "/forbidden")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected the replayed 401 to propagate, got %d", resp.StatusCode)
	}
	if calls := server.refreshCalls.Load(); calls != 1 {
		t.Fatalf("expected exactly 1 refresh attempt, got %d", calls)
	}
}

func TestRefreshEndpointNotIntercepted(t *testing.T) {
	server := newAuthServer(t)
	server.refreshFails = true
	client := server.client(t, nil)

	// Hitting the refresh endpoint directly must not recurse.
	resp, err := client.Post(server.srv.URL+"/refresh-token", "application/json", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected raw 401, got %d", resp.StatusCode)
	}
	if calls := server.refreshCalls.Load(); calls != 1 {
		t.Fatalf("expected 1 refresh call, got %d", calls)
	}
}
