package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kalambet/wsr/internal/foodai"
	"github.com/kalambet/wsr/internal/hevy"
	"github.com/kalambet/wsr/internal/profile"
	"github.com/kalambet/wsr/internal/storage"
)

const testWebhookSecret = "hook-secret-12345"

func setupHandler(t *testing.T, mutate func(*Deps)) (http.Handler, Deps) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	deps := Deps{
		Store:             store,
		Profile:           profile.NewManager(store),
		State:             NewState(),
		Hevy:              hevy.NewClient("", ""),
		Food:              foodai.NewClient(""),
		HevyWebhookSecret: testWebhookSecret,
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewHandler(deps), deps
}

func doJSON(t *testing.T, h http.Handler, method, url, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(out); err != nil {
		t.Fatalf("decoding response %q: %v", rr.Body.String(), err)
	}
}

func TestHealth(t *testing.T) {
	h, _ := setupHandler(t, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp struct {
		OK  bool   `json:"ok"`
		Now string `json:"now"`
	}
	decodeBody(t, rr, &resp)
	if !resp.OK {
		t.Error("ok = false")
	}
	if resp.Now == "" {
		t.Error("now is empty")
	}
}

func TestHevyConnectURL(t *testing.T) {
	h, _ := setupHandler(t, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/hevy/connect-url", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp map[string]string
	decodeBody(t, rr, &resp)
	if resp["url"] != "https://hevy.com/settings?developer" {
		t.Errorf("url = %q", resp["url"])
	}
	if resp["mode"] != "env-api-key" {
		t.Errorf("mode = %q", resp["mode"])
	}
}

func TestHevySummary_NoKeyStillOK(t *testing.T) {
	h, _ := setupHandler(t, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/hevy/summary", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (disconnected must not fail)", rr.Code, http.StatusOK)
	}

	var resp struct {
		Connected bool   `json:"connected"`
		Error     string `json:"error"`
	}
	decodeBody(t, rr, &resp)
	if resp.Connected {
		t.Error("connected = true without an API key")
	}
	if !strings.Contains(resp.Error, "HEVY_API_KEY") {
		t.Errorf("error = %q, want mention of missing key", resp.Error)
	}
}

func TestHevySummary_Upstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/user/info":
			fmt.Fprint(w, `{"data":{"id":"u1","name":"Alex"}}`)
		case "/v1/workouts/count":
			fmt.Fprint(w, `{"workout_count":42}`)
		case "/v1/workouts":
			fmt.Fprint(w, `{"workouts":[{"id":"w1","title":"Push Day","start_time":"2026-02-03T18:00:00Z","exercises":[{"title":"Bench","sets":[{"weight_kg":60,"reps":10}]}]}]}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(upstream.Close)

	h, _ := setupHandler(t, func(d *Deps) {
		d.Hevy = hevy.NewClient("key123", upstream.URL)
	})

	rr := doJSON(t, h, http.MethodGet, "/api/hevy/summary", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp hevy.Summary
	decodeBody(t, rr, &resp)
	if !resp.Connected {
		t.Fatalf("connected = false: %s", resp.Error)
	}
	if resp.User == nil || resp.User.Name != "Alex" {
		t.Errorf("user = %+v", resp.User)
	}
	if resp.WorkoutCount != 42 {
		t.Errorf("workoutCount = %d", resp.WorkoutCount)
	}
	if resp.LastWorkout == nil || resp.LastWorkout.VolumeKg != 600 {
		t.Errorf("lastWorkout = %+v", resp.LastWorkout)
	}
}

func TestHevyWebhook_RejectsBadSecret(t *testing.T) {
	h, deps := setupHandler(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/hevy", strings.NewReader(`{"event":"x"}`))
	req.Header.Set("Authorization", "wrong-secret")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
	body := strings.TrimSpace(rr.Body.String())
	want := `{"error":"Invalid authorization header","ok":false}`
	if body != want {
		t.Errorf("body = %s, want %s", body, want)
	}
	if event := deps.State.HevyEvent(); event.Latest != nil {
		t.Error("rejected delivery mutated the webhook slot")
	}
}

func TestHevyWebhook_RejectsWhenUnconfigured(t *testing.T) {
	h, _ := setupHandler(t, func(d *Deps) { d.HevyWebhookSecret = "" })

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/hevy", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestHevyWebhook_AcceptsAndOverwrites(t *testing.T) {
	h, _ := setupHandler(t, nil)

	for _, payload := range []string{`{"event":"first"}`, `{"event":"second"}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/hevy", strings.NewReader(payload))
		req.Header.Set("Authorization", testWebhookSecret)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
		}
	}

	rr := doJSON(t, h, http.MethodGet, "/api/webhooks/hevy/latest", "")
	var resp struct {
		Latest     map[string]string `json:"latest"`
		ReceivedAt *string           `json:"receivedAt"`
	}
	decodeBody(t, rr, &resp)
	if resp.Latest["event"] != "second" {
		t.Errorf("latest = %v, want the second delivery", resp.Latest)
	}
	if resp.ReceivedAt == nil {
		t.Error("receivedAt is null after delivery")
	}
}

func TestHevyLatest_EmptySlot(t *testing.T) {
	h, _ := setupHandler(t, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/webhooks/hevy/latest", "")
	body := strings.TrimSpace(rr.Body.String())
	want := `{"latest":null,"receivedAt":null}`
	if body != want {
		t.Errorf("body = %s, want %s", body, want)
	}
}

func TestWithingsWebhook_Unconditional(t *testing.T) {
	h, _ := setupHandler(t, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/webhooks/withings", `{"appli":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	rr = doJSON(t, h, http.MethodGet, "/api/webhooks/withings/latest", "")
	var resp struct {
		Latest          map[string]float64 `json:"latest"`
		ReceivedAt      *string            `json:"receivedAt"`
		LatestAuthCode  *string            `json:"latestAuthCode"`
		LatestAuthState *string            `json:"latestAuthState"`
	}
	decodeBody(t, rr, &resp)
	if resp.Latest["appli"] != 1 {
		t.Errorf("latest = %v", resp.Latest)
	}
	if resp.ReceivedAt == nil {
		t.Error("receivedAt is null")
	}
	if resp.LatestAuthCode != nil {
		t.Error("authCode should be null before any callback")
	}
}

func TestWithingsCallback(t *testing.T) {
	h, _ := setupHandler(t, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/auth/withings/callback?code=abc&state=xyz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if rr.Body.String() != "Withings callback received" {
		t.Errorf("body = %q", rr.Body.String())
	}

	rr = doJSON(t, h, http.MethodGet, "/api/webhooks/withings/latest", "")
	var resp struct {
		LatestAuthCode  string `json:"latestAuthCode"`
		LatestAuthState string `json:"latestAuthState"`
	}
	decodeBody(t, rr, &resp)
	if resp.LatestAuthCode != "abc" || resp.LatestAuthState != "xyz" {
		t.Errorf("auth = %q/%q, want abc/xyz", resp.LatestAuthCode, resp.LatestAuthState)
	}
}

func TestWithingsConnectURL(t *testing.T) {
	h, _ := setupHandler(t, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/withings/connect-url", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status without client id = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	h, _ = setupHandler(t, func(d *Deps) {
		d.WithingsClientID = "client-1"
		d.WithingsRedirectURI = "https://example.com/cb"
	})
	rr = doJSON(t, h, http.MethodGet, "/api/withings/connect-url", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp map[string]string
	decodeBody(t, rr, &resp)
	if !strings.HasPrefix(resp["url"], "https://account.withings.com/oauth2_user/authorize2?") {
		t.Errorf("url = %q", resp["url"])
	}
	if !strings.Contains(resp["url"], "client_id=client-1") {
		t.Errorf("url missing client id: %q", resp["url"])
	}
	if resp["state"] == "" {
		t.Error("state token is empty")
	}
	if resp["redirectUri"] != "https://example.com/cb" {
		t.Errorf("redirectUri = %q", resp["redirectUri"])
	}
}

func TestAnalyzeText_Validation(t *testing.T) {
	h, _ := setupHandler(t, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/food/analyze-text", `{"input":"   "}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	var resp map[string]string
	decodeBody(t, rr, &resp)
	if resp["error"] != "input is required" {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestAnalyzeText_Fallback(t *testing.T) {
	h, _ := setupHandler(t, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/food/analyze-text", `{"input":"chicken and rice"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp foodai.Estimate
	decodeBody(t, rr, &resp)
	want := foodai.Estimate{Item: "chicken and rice", Calories: 500, Protein: 20, Confidence: 0.25}
	if resp != want {
		t.Errorf("estimate = %+v, want %+v", resp, want)
	}
}

func TestAnalyzeImage_Fallback(t *testing.T) {
	h, _ := setupHandler(t, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/food/analyze-image", `{"base64Image":"aGVsbG8="}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}

	var resp foodai.Estimate
	decodeBody(t, rr, &resp)
	want := foodai.Estimate{Item: "Unknown meal", Calories: 600, Protein: 25, Confidence: 0.2}
	if resp != want {
		t.Errorf("estimate = %+v, want %+v", resp, want)
	}
}

func TestAnalyzeImage_Validation(t *testing.T) {
	h, _ := setupHandler(t, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/food/analyze-image", `{}`)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}

	var resp map[string]string
	decodeBody(t, rr, &resp)
	if resp["error"] != "base64Image is required" {
		t.Errorf("error = %q", resp["error"])
	}
}

func TestAnalyzeText_ModelBacked(t *testing.T) {
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"output_text":"Sure! {\"item\":\"Oatmeal\",\"calories\":350,\"protein\":12,\"confidence\":1.4}"}`)
	}))
	t.Cleanup(model.Close)

	h, _ := setupHandler(t, func(d *Deps) {
		d.Food = foodai.NewClientWithBaseURL("test-key", model.URL)
	})

	rr := doJSON(t, h, http.MethodPost, "/api/food/analyze-text", `{"input":"oatmeal"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp foodai.Estimate
	decodeBody(t, rr, &resp)
	want := foodai.Estimate{Item: "Oatmeal", Calories: 350, Protein: 12, Confidence: 1}
	if resp != want {
		t.Errorf("estimate = %+v, want %+v", resp, want)
	}
}

func TestAnalyzeText_UpstreamFailure(t *testing.T) {
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(model.Close)

	h, _ := setupHandler(t, func(d *Deps) {
		d.Food = foodai.NewClientWithBaseURL("test-key", model.URL)
	})

	rr := doJSON(t, h, http.MethodPost, "/api/food/analyze-text", `{"input":"oatmeal"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestCORSPreflight(t *testing.T) {
	h, _ := setupHandler(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:8081")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
