package api

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/kalambet/wsr/internal/foodai"
	"github.com/kalambet/wsr/internal/hevy"
	"github.com/kalambet/wsr/internal/profile"
	"github.com/kalambet/wsr/internal/storage"
)

// Image payloads arrive base64-encoded in JSON.
const maxRequestBodySize = 20 << 20 // 20MB

const withingsAuthorizeURL = "https://account.withings.com/oauth2_user/authorize2"

// Deps holds everything the HTTP surface needs. State carries the in-memory
// webhook slots; the clients degrade to deterministic fallbacks when their
// keys are unset, so none of these are optional.
type Deps struct {
	Store   *storage.Store
	Profile *profile.Manager
	State   *State
	Hevy    *hevy.Client
	Food    *foodai.Client

	HevyWebhookSecret   string
	WithingsClientID    string
	WithingsRedirectURI string
}

// NewHandler builds the full /api router: provider proxying, webhook intake,
// food analysis, and the review endpoints.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handleHealth)

		r.Get("/hevy/connect-url", handleHevyConnectURL)
		r.Get("/hevy/summary", handleHevySummary(deps))
		r.Post("/webhooks/hevy", handleHevyWebhook(deps))
		r.Get("/webhooks/hevy/latest", handleHevyLatest(deps))

		r.Get("/withings/connect-url", handleWithingsConnectURL(deps))
		r.Get("/auth/withings/callback", handleWithingsCallback(deps))
		r.Post("/webhooks/withings", handleWithingsWebhook(deps))
		r.Get("/webhooks/withings/latest", handleWithingsLatest(deps))

		r.Post("/food/analyze-text", handleAnalyzeText(deps))
		r.Post("/food/analyze-image", handleAnalyzeImage(deps))

		mountReviewRoutes(r, deps)
	})

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(r)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"ok":  true,
		"now": time.Now().UTC().Format(time.RFC3339),
	})
}

func handleHevyConnectURL(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{
		"url":  hevy.ConnectURL,
		"mode": "env-api-key",
	})
}

func handleHevySummary(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := deps.Hevy.Summary(r.Context())
		if err != nil {
			// Deliberately 200: the client renders a disconnected card.
			writeJSON(w, hevy.Summary{
				Connected: false,
				Error:     err.Error(),
			})
			return
		}
		writeJSON(w, summary)
	}
}

func handleHevyWebhook(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !secretMatches(r.Header.Get("Authorization"), deps.HevyWebhookSecret) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]any{
				"ok":    false,
				"error": "Invalid authorization header",
			})
			return
		}

		payload := readRawBody(w, r)
		deps.State.RecordHevyEvent(payload, time.Now().UTC())
		writeJSON(w, map[string]bool{"ok": true})
	}
}

// secretMatches reports whether the provided Authorization header equals the
// configured webhook secret. An unconfigured secret rejects everything.
func secretMatches(provided, expected string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

func handleHevyLatest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event := deps.State.HevyEvent()
		writeJSON(w, map[string]any{
			"latest":     event.Latest,
			"receivedAt": timestampOrNil(event.ReceivedAt),
		})
	}
}

func handleWithingsConnectURL(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.WithingsClientID == "" {
			httpError(w, http.StatusBadRequest, "WITHINGS_CLIENT_ID is not configured")
			return
		}

		redirectURI := deps.WithingsRedirectURI
		if redirectURI == "" {
			scheme := "http"
			if r.TLS != nil {
				scheme = "https"
			}
			redirectURI = fmt.Sprintf("%s://%s/api/auth/withings/callback", scheme, r.Host)
		}

		stateToken := uuid.New().String()
		q := url.Values{}
		q.Set("response_type", "code")
		q.Set("client_id", deps.WithingsClientID)
		q.Set("redirect_uri", redirectURI)
		q.Set("scope", "user.info,user.metrics")
		q.Set("state", stateToken)

		writeJSON(w, map[string]string{
			"url":         withingsAuthorizeURL + "?" + q.Encode(),
			"state":       stateToken,
			"redirectUri": redirectURI,
		})
	}
}

// handleWithingsCallback is the OAuth redirect target. Withings probes it
// during app registration, so it must answer 200 fast and never redirect.
func handleWithingsCallback(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.State.RecordWithingsAuth(r.URL.Query().Get("code"), r.URL.Query().Get("state"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Withings callback received"))
	}
}

func handleWithingsWebhook(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := readRawBody(w, r)
		deps.State.RecordWithingsEvent(payload, time.Now().UTC())
		writeJSON(w, map[string]bool{"ok": true})
	}
}

func handleWithingsLatest(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event, authCode, authState := deps.State.WithingsEvent()
		writeJSON(w, map[string]any{
			"latest":          event.Latest,
			"receivedAt":      timestampOrNil(event.ReceivedAt),
			"latestAuthCode":  stringOrNil(authCode),
			"latestAuthState": stringOrNil(authState),
		})
	}
}

type analyzeTextRequest struct {
	Input string `json:"input"`
}

func handleAnalyzeText(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req analyzeTextRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}

		input := strings.TrimSpace(req.Input)
		if input == "" {
			httpError(w, http.StatusBadRequest, "input is required")
			return
		}

		estimate, err := deps.Food.AnalyzeText(r.Context(), input)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "%v", err)
			return
		}
		writeJSON(w, estimate)
	}
}

type analyzeImageRequest struct {
	Base64Image string `json:"base64Image"`
	MediaType   string `json:"mediaType"`
}

func handleAnalyzeImage(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req analyzeImageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}

		image := strings.TrimSpace(req.Base64Image)
		if image == "" {
			httpError(w, http.StatusBadRequest, "base64Image is required")
			return
		}

		estimate, err := deps.Food.AnalyzeImage(r.Context(), image, strings.TrimSpace(req.MediaType))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "%v", err)
			return
		}
		writeJSON(w, estimate)
	}
}

// readRawBody drains the (size-capped) body and returns it as a raw JSON
// value, or nil when empty or unreadable. Webhook intake never fails on a
// bad body: the provider only cares about the status code.
func readRawBody(w http.ResponseWriter, r *http.Request) json.RawMessage {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 || !json.Valid(body) {
		return nil
	}
	return json.RawMessage(body)
}

func timestampOrNil(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func stringOrNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": fmt.Sprintf(format, args...),
	})
}
