package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/wsr/internal/review"
	"github.com/kalambet/wsr/internal/storage"
)

func mountReviewRoutes(r chi.Router, deps Deps) {
	r.Get("/sectors", handleListSectors(deps))
	r.Put("/sectors", handleReplaceSectors(deps))
	r.Post("/sectors/presets/{id}", handleApplyPreset(deps))
	r.Post("/sectors/custom", handleCreateCustomSector(deps))

	r.Get("/review/entries", handleListEntries(deps))
	r.Put("/review/entries/{sectorID}", handleSaveEntry(deps))
	r.Post("/review/sync", handleSyncEntries(deps))
	r.Get("/review/scores", handleScores(deps))
	r.Get("/review/insights", handleInsights(deps))
	r.Post("/review/bridge", handleBridge(deps))
	r.Post("/review/lock", handleLockWeek(deps))
	r.Get("/weeks", handleListWeeks(deps))

	r.Get("/logs", handleListLogs(deps))
	r.Post("/logs", handleAppendLog(deps))
	r.Get("/logs/totals", handleLogTotals(deps))

	r.Get("/profile", handleGetProfile(deps))
	r.Patch("/profile", handlePatchProfile(deps))
}

func handleListSectors(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contracts, err := deps.Store.ListSectors()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list sectors: %v", err)
			return
		}
		if contracts == nil {
			contracts = []review.SectorContract{}
		}
		writeJSON(w, contracts)
	}
}

func handleReplaceSectors(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var contracts []review.SectorContract
		if err := json.NewDecoder(r.Body).Decode(&contracts); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if err := review.ValidateContracts(contracts); err != nil {
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}
		if err := deps.Store.ReplaceSectors(contracts); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save sectors: %v", err)
			return
		}
		writeJSON(w, contracts)
	}
}

func handleApplyPreset(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pack, ok := review.FindPresetPack(chi.URLParam(r, "id"))
		if !ok {
			httpError(w, http.StatusNotFound, "unknown preset pack: %s", chi.URLParam(r, "id"))
			return
		}

		current, err := deps.Store.ListSectors()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list sectors: %v", err)
			return
		}

		merged := review.MergePresetPack(current, pack)
		if err := deps.Store.ReplaceSectors(merged); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save sectors: %v", err)
			return
		}
		writeJSON(w, merged)
	}
}

type customSectorRequest struct {
	Name            string                `json:"name"`
	Icon            string                `json:"icon"`
	Intent          string                `json:"intent"`
	Priority        review.SectorPriority `json:"priority"`
	Sensitive       bool                  `json:"sensitive"`
	Signals         []string              `json:"signals"`
	AntiPatterns    []string              `json:"antiPatterns"`
	Prompts         []string              `json:"prompts"`
	AdvancedPrompts []string              `json:"advancedPrompts"`
}

func handleCreateCustomSector(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req customSectorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Name) == "" {
			httpError(w, http.StatusBadRequest, "name is required")
			return
		}

		contract := review.NewCustomContract(review.CustomContractInput{
			Name:            req.Name,
			Icon:            req.Icon,
			Intent:          req.Intent,
			Priority:        req.Priority,
			Sensitive:       req.Sensitive,
			Signals:         req.Signals,
			AntiPatterns:    req.AntiPatterns,
			Prompts:         req.Prompts,
			AdvancedPrompts: req.AdvancedPrompts,
		})

		current, err := deps.Store.ListSectors()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list sectors: %v", err)
			return
		}
		for _, existing := range current {
			if existing.ID == contract.ID {
				httpError(w, http.StatusBadRequest, "sector already exists: %s", contract.ID)
				return
			}
		}

		merged := append(current, contract)
		if err := review.ValidateContracts(merged); err != nil {
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}
		if err := deps.Store.ReplaceSectors(merged); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save sectors: %v", err)
			return
		}
		writeJSON(w, contract)
	}
}

// loadReviewState fetches contracts and entries, with entries synced to the
// current contract set.
func loadReviewState(deps Deps) ([]review.SectorContract, review.WeeklyEntryMap, error) {
	contracts, err := deps.Store.ListSectors()
	if err != nil {
		return nil, nil, err
	}
	entries, err := deps.Store.ListEntries()
	if err != nil {
		return nil, nil, err
	}
	return contracts, review.SyncEntriesWithContracts(entries, contracts), nil
}

func handleListEntries(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, entries, err := loadReviewState(deps)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load entries: %v", err)
			return
		}
		writeJSON(w, entries)
	}
}

func handleSaveEntry(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		sectorID := chi.URLParam(r, "sectorID")

		var entry review.WeeklySectorEntry
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		entry.SectorID = sectorID

		contracts, err := deps.Store.ListSectors()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list sectors: %v", err)
			return
		}

		var contract *review.SectorContract
		for i := range contracts {
			if contracts[i].ID == sectorID {
				contract = &contracts[i]
				break
			}
		}
		if contract == nil {
			httpError(w, http.StatusNotFound, "unknown sector: %s", sectorID)
			return
		}

		if err := review.ValidateAnswers(entry, *contract); err != nil {
			httpError(w, http.StatusBadRequest, "%v", err)
			return
		}
		if err := deps.Store.SaveEntry(entry); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save entry: %v", err)
			return
		}
		writeJSON(w, entry)
	}
}

func handleSyncEntries(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, entries, err := loadReviewState(deps)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load entries: %v", err)
			return
		}
		for _, entry := range entries {
			if err := deps.Store.SaveEntry(entry); err != nil {
				httpError(w, http.StatusInternalServerError, "failed to save entry: %v", err)
				return
			}
		}
		writeJSON(w, entries)
	}
}

func handleScores(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contracts, entries, err := loadReviewState(deps)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load review state: %v", err)
			return
		}

		scores := review.BuildSectorScores(contracts, entries)
		if scores == nil {
			scores = []review.SectorScore{}
		}
		writeJSON(w, map[string]any{
			"scores":  scores,
			"overall": review.OverallScore(scores),
		})
	}
}

func handleInsights(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contracts, entries, err := loadReviewState(deps)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load review state: %v", err)
			return
		}
		writeJSON(w, review.BuildInsights(review.BuildSectorScores(contracts, entries)))
	}
}

type bridgeRequest struct {
	WeekLabel        string `json:"weekLabel"`
	IncludeSensitive bool   `json:"includeSensitive"`
}

func handleBridge(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req bridgeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}

		contracts, entries, err := loadReviewState(deps)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load review state: %v", err)
			return
		}

		text := review.BuildBridgeText(review.BridgeArgs{
			WeekLabel:        req.WeekLabel,
			Contracts:        contracts,
			Entries:          entries,
			IncludeSensitive: req.IncludeSensitive,
		})
		writeJSON(w, map[string]string{"text": text})
	}
}

type lockWeekRequest struct {
	Week  string `json:"week"`
	Title string `json:"title"`
	Dates string `json:"dates"`
}

func handleLockWeek(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req lockWeekRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.Week == "" {
			httpError(w, http.StatusBadRequest, "week is required")
			return
		}

		contracts, entries, err := loadReviewState(deps)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to load review state: %v", err)
			return
		}

		overall := review.OverallScore(review.BuildSectorScores(contracts, entries))
		rounded := math.Round(overall*10) / 10

		trend := "flat"
		prev, err := deps.Store.LatestWeek()
		switch {
		case errors.Is(err, storage.ErrNotFound):
			// First locked week has nothing to compare against.
		case err != nil:
			httpError(w, http.StatusInternalServerError, "failed to load previous week: %v", err)
			return
		case rounded > prev.Score:
			trend = "up"
		case rounded < prev.Score:
			trend = "down"
		}

		summary := storage.WeekSummary{
			Week:     req.Week,
			Title:    req.Title,
			Dates:    req.Dates,
			Score:    rounded,
			Trend:    trend,
			LockedAt: time.Now().UTC(),
		}
		if err := deps.Store.SaveWeek(summary); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to save week: %v", err)
			return
		}
		writeJSON(w, summary)
	}
}

func handleListWeeks(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		weeks, err := deps.Store.ListWeeks()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list weeks: %v", err)
			return
		}
		if weeks == nil {
			weeks = []storage.WeekSummary{}
		}
		writeJSON(w, weeks)
	}
}

func handleListLogs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs, err := deps.Store.ListDailyLogs(r.URL.Query().Get("day"))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to list logs: %v", err)
			return
		}
		if logs == nil {
			logs = []storage.DailyLog{}
		}
		writeJSON(w, logs)
	}
}

type appendLogRequest struct {
	Kind       string   `json:"type"`
	Item       string   `json:"item"`
	Calories   float64  `json:"calories"`
	Protein    float64  `json:"protein"`
	Confidence *float64 `json:"confidence"`
}

func handleAppendLog(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req appendLogRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}
		if req.Item == "" {
			httpError(w, http.StatusBadRequest, "item is required")
			return
		}

		kind := storage.DailyLogKind(req.Kind)
		switch kind {
		case "":
			kind = storage.LogQuickAdd
		case storage.LogFood, storage.LogVoice, storage.LogQuickAdd:
		default:
			httpError(w, http.StatusBadRequest, "unknown log type: %s", req.Kind)
			return
		}

		entry := storage.DailyLog{
			ID:         uuid.New().String(),
			Kind:       kind,
			Item:       req.Item,
			Calories:   req.Calories,
			Protein:    req.Protein,
			Confidence: req.Confidence,
			CreatedAt:  time.Now().UTC(),
		}
		if err := deps.Store.AppendDailyLog(entry); err != nil {
			httpError(w, http.StatusInternalServerError, "failed to append log: %v", err)
			return
		}
		writeJSON(w, entry)
	}
}

func handleLogTotals(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		totals, err := deps.Store.DailyTotals(r.URL.Query().Get("day"))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to compute totals: %v", err)
			return
		}
		writeJSON(w, totals)
	}
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot, err := deps.Profile.GetSnapshot()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to get profile: %v", err)
			return
		}
		writeJSON(w, snapshot)
	}
}

func handlePatchProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var fields map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
			return
		}

		for key, value := range fields {
			if err := deps.Profile.SetField(key, value); err != nil {
				httpError(w, http.StatusInternalServerError, "failed to set field %q: %v", key, err)
				return
			}
		}

		snapshot, err := deps.Profile.GetSnapshot()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "failed to get profile: %v", err)
			return
		}
		writeJSON(w, snapshot)
	}
}
