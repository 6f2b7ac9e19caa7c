package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"orphanadmin/internal/application"
	"orphanadmin/internal/auth"
	"orphanadmin/internal/query"
)

func newClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, Options{Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestListSendsQueryAndToken(t *testing.T) {
	var gotQuery, gotAuth string
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/applications" {
			t.Errorf("path %s", r.URL.Path)
		}
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(application.NewPage([]application.Summary{{ID: "a1"}}, 0, 10, 1))
	})

	ctx := auth.ContextWithToken(context.Background(), "tok-123")
	q := query.SetFilter(query.Default(), query.FilterDistrict, "Barisal")
	page, err := c.ListApplications(ctx, q)
	if err != nil {
		t.Fatal(err)
	}
	if page.TotalElements != 1 || page.Content[0].ID != "a1" {
		t.Fatalf("page %+v", page)
	}
	if gotAuth != "Bearer tok-123" {
		t.Fatalf("authorization %q", gotAuth)
	}
	want := query.Encode(q).Encode()
	if gotQuery != want {
		t.Fatalf("query %q, want %q", gotQuery, want)
	}
}

func TestUpdateStatusBody(t *testing.T) {
	var got statusRequest
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/v1/applications/a%2F1/status" && r.URL.Path != "/v1/applications/a/1/status" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	})
	if err := c.UpdateApplicationStatus(context.Background(), "a/1", application.StatusRejected, "Missing documents"); err != nil {
		t.Fatal(err)
	}
	if got.Status != application.StatusRejected || got.RejectionMessage != "Missing documents" {
		t.Fatalf("body %+v", got)
	}
}

func TestDeleteSendsConfirmation(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Query().Get("confirm") != "true" {
			t.Errorf("%s %s", r.Method, r.URL.String())
		}
		w.WriteHeader(http.StatusNoContent)
	})
	if err := c.DeleteApplication(context.Background(), "a1"); err != nil {
		t.Fatal(err)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"validation", http.StatusBadRequest, `{"error":"bad"}`, application.ErrValidation},
		{"unprocessable", http.StatusUnprocessableEntity, `{"error":"bad"}`, application.ErrValidation},
		{"not found", http.StatusNotFound, `{"error":"gone"}`, application.ErrNotFound},
		{"conflict", http.StatusConflict, `{"error":"stale"}`, application.ErrInvalidTransition},
		{"unauthorized", http.StatusUnauthorized, ``, auth.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, `{"error":"no"}`, auth.ErrForbidden},
		{"server", http.StatusBadGateway, `upstream down`, application.ErrFetch},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})
			_, err := c.GetApplication(context.Background(), "a1")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var se *StatusError
			if !errors.As(err, &se) || se.Code != tc.status {
				t.Fatalf("expected StatusError %d, got %v", tc.status, err)
			}
		})
	}
}

func TestTransportFailureIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	c, err := New(url, Options{Timeout: 200 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.ListApplications(context.Background(), query.Default()); !errors.Is(err, application.ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New("not a url", Options{}); err == nil {
		t.Fatal("expected error")
	}
}
