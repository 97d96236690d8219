package decision

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"tripvoucher/internal"
	"tripvoucher/internal/config"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func testRemote(rt roundTripFunc) *Remote {
	cfg := config.Config{
		DecisionURL:          "https://decide.example.test/api/v1/",
		DecisionToken:        "test",
		DecisionRateLimitRPS: 1000,
		DecisionTimeoutMs:    1000,
	}
	r := NewRemote(cfg, nil)
	r.httpClient = &http.Client{Transport: rt}
	return r
}

func TestRemoteDecideWithRetry(t *testing.T) {
	attempt := 0
	r := testRemote(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/v1/classify" {
			t.Fatalf("unexpected path %s", req.URL.Path)
		}
		if req.Header.Get("Authorization") != "Bearer test" {
			t.Fatalf("missing token")
		}
		var body map[string]string
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["excursion"] != "Reindeer farm" {
			t.Fatalf("excursion=%q", body["excursion"])
		}

		attempt++
		if attempt == 1 {
			return jsonResponse(http.StatusServiceUnavailable, `{"error":"busy"}`), nil
		}
		return jsonResponse(http.StatusOK, `{"success":true,"data":{"tag":"safari"}}`), nil
	})

	c, err := r.Decide(context.Background(), "Reindeer farm")
	if err != nil {
		t.Fatal(err)
	}
	if c != internal.CategorySafari {
		t.Fatalf("category=%q", c)
	}
	if attempt != 2 {
		t.Fatalf("attempts=%d", attempt)
	}
}

func TestRemoteRejects(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{"client error", http.StatusBadRequest, `{"success":false}`},
		{"unsuccessful", http.StatusOK, `{"success":false,"message":"nope"}`},
		{"unknown tag", http.StatusOK, `{"success":true,"data":{"tag":"boat"}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := testRemote(func(*http.Request) (*http.Response, error) {
				return jsonResponse(tc.status, tc.body), nil
			})
			if _, err := r.Decide(context.Background(), "Dinner cruise"); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestRemoteWithoutURL(t *testing.T) {
	r := NewRemote(config.Config{}, nil)
	if _, err := r.Decide(context.Background(), "Dinner cruise"); err == nil {
		t.Fatal("expected error")
	}
}
