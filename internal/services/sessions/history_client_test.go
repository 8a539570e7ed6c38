package sessions

import (
    "context"
    "net/http"
    "net/http/httptest"
    "sync/atomic"
    "testing"
    "time"
)

func TestHTTPHistoryStoreDecodesSessions(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if r.URL.Path != "/users/u1/sessions" {
            t.Errorf("unexpected path %s", r.URL.Path)
        }
        if r.URL.Query().Get("from") != "2024-03-01" || r.URL.Query().Get("to") != "2024-03-31" {
            t.Errorf("unexpected query %s", r.URL.RawQuery)
        }
        if r.Header.Get("Authorization") != "Bearer secret" {
            t.Errorf("missing token")
        }
        w.Header().Set("Content-Type", "application/json")
        _, _ = w.Write([]byte(`{"sessions":[
            {"date":"2024-03-02","stress":80,"duration_minutes":60,"workout_type":"endurance"},
            {"date":"garbage","stress":10},
            {"date":"2024-03-04","stress":120,"duration_minutes":45,"workout_type":"threshold"}]}`))
    }))
    defer srv.Close()

    store := NewHTTPHistoryStore(NewHTTPServiceBase(srv.URL, "secret", time.Second, 1))
    from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
    to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
    got, err := store.SessionsBetween(context.Background(), "u1", from, to)
    if err != nil {
        t.Fatalf("sessions: %v", err)
    }
    if len(got) != 2 {
        t.Fatalf("want 2 sessions, got %d", len(got))
    }
    if got[0].Duration != time.Hour || got[0].UserID != "u1" || got[1].Stress != 120 {
        t.Fatalf("unexpected records %+v", got)
    }
}

func TestHTTPHistoryStoreNotFoundIsEmpty(t *testing.T) {
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        http.NotFound(w, r)
    }))
    defer srv.Close()

    store := NewHTTPHistoryStore(NewHTTPServiceBase(srv.URL, "", time.Second, 3))
    got, err := store.SessionsBetween(context.Background(), "ghost", time.Now(), time.Now())
    if err != nil || got == nil || len(got) != 0 {
        t.Fatalf("want empty history, got %v, %v", got, err)
    }
}

func TestHTTPHistoryStoreRetriesServerErrors(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        if atomic.AddInt32(&calls, 1) < 3 {
            w.WriteHeader(http.StatusBadGateway)
            return
        }
        _, _ = w.Write([]byte(`{"sessions":[]}`))
    }))
    defer srv.Close()

    store := NewHTTPHistoryStore(NewHTTPServiceBase(srv.URL, "", time.Second, 3))
    if _, err := store.SessionsBetween(context.Background(), "u1", time.Now(), time.Now()); err != nil {
        t.Fatalf("want success after retries, got %v", err)
    }
    if n := atomic.LoadInt32(&calls); n != 3 {
        t.Fatalf("want 3 calls, got %d", n)
    }
}

func TestHTTPHistoryStoreDoesNotRetryClientErrors(t *testing.T) {
    var calls int32
    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        atomic.AddInt32(&calls, 1)
        w.WriteHeader(http.StatusUnauthorized)
    }))
    defer srv.Close()

    store := NewHTTPHistoryStore(NewHTTPServiceBase(srv.URL, "", time.Second, 3))
    if _, err := store.SessionsBetween(context.Background(), "u1", time.Now(), time.Now()); err == nil {
        t.Fatalf("want error")
    }
    if n := atomic.LoadInt32(&calls); n != 1 {
        t.Fatalf("want a single call, got %d", n)
    }
}
