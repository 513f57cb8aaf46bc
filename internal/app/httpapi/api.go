// Package httpapi exposes the REST handlers and translates HTTP requests
// into the contest, evaluation and ranking services.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/global-partner-dev/cocoa-judging/internal/app/contest"
	"github.com/global-partner-dev/cocoa-judging/internal/app/evaluation"
	"github.com/global-partner-dev/cocoa-judging/internal/app/physical"
	"github.com/global-partner-dev/cocoa-judging/internal/app/ranking"
	"github.com/global-partner-dev/cocoa-judging/internal/domain"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/metrics"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/throttle"
)

// API bundles the HTTP handlers bound to the judging services.
type API struct {
	contests    *contest.Service
	evaluations *evaluation.Service
	rankings    *ranking.Aggregator
	topN        int
	logger      *slog.Logger
}

// New builds the handler set. topN is the default leaderboard size served
// when the request carries no explicit limit; zero falls back to the
// aggregator's default.
func New(contests *contest.Service, evaluations *evaluation.Service, rankings *ranking.Aggregator, topN int, logger *slog.Logger) *API {
	return &API{
		contests:    contests,
		evaluations: evaluations,
		rankings:    rankings,
		topN:        topN,
		logger:      logger,
	}
}

func (a *API) Register(mux *http.ServeMux) {
	// Routes stay centralized so tests can mount the same mux.
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/contests", a.handleContests)
	mux.HandleFunc("/contests/", a.handleContestDetails)
	mux.HandleFunc("/samples", a.handleSamples)
	mux.HandleFunc("/samples/", a.handleSampleDetails)
	mux.HandleFunc("/evaluations", a.handleEvaluations)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *API) handleContests(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createContest(w, r)
	case http.MethodGet:
		a.listContests(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *API) handleContestDetails(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/contests/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}

	id := domain.ContestID(parts[0])

	switch {
	case len(parts) == 2 && parts[1] == "results" && r.Method == http.MethodGet:
		a.getResults(w, r, id)
	case len(parts) == 2 && parts[1] == "recompute" && r.Method == http.MethodPost:
		a.recompute(w, r, id)
	case len(parts) == 2 && parts[1] == "progress" && r.Method == http.MethodGet:
		a.getProgress(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (a *API) handleSamples(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	a.registerSample(w, r)
}

func (a *API) handleSampleDetails(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/samples/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" || r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	id := domain.SampleID(parts[0])

	switch parts[1] {
	case "physical-evaluation":
		a.submitPhysical(w, r, id)
	case "receive":
		a.transitionSample(w, r, id, a.evaluations.ReceiveSample)
	case "approve":
		a.transitionSample(w, r, id, a.evaluations.ApproveSample)
	default:
		http.NotFound(w, r)
	}
}

type contestRequest struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	DirectorID  string    `json:"director_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

func (a *API) createContest(w http.ResponseWriter, r *http.Request) {
	var req contestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	created, err := a.contests.CreateContest(r.Context(), domain.Contest{
		Name:        req.Name,
		Description: req.Description,
		DirectorID:  domain.UserID(req.DirectorID),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		a.logger.Warn("contest creation rejected", "err", err, "director", req.DirectorID)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

func (a *API) listContests(w http.ResponseWriter, r *http.Request) {
	views, err := a.contests.ListContests(r.Context())
	if err != nil {
		a.logger.Error("failed to list contests", "err", err)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, views)
}

type sampleRequest struct {
	ContestID string `json:"contest_id"`
	OwnerID   string `json:"owner_id"`
	Category  string `json:"category"`
}

func (a *API) registerSample(w http.ResponseWriter, r *http.Request) {
	var req sampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	created, err := a.contests.RegisterSample(r.Context(), domain.Sample{
		ContestID: domain.ContestID(req.ContestID),
		OwnerID:   domain.UserID(req.OwnerID),
		Category:  domain.SampleCategory(req.Category),
	})
	if err != nil {
		a.logger.Warn("sample registration rejected", "err", err, "contest", req.ContestID)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, created)
}

type physicalRequest struct {
	DirectorID   string                `json:"director_id"`
	Measurements physical.Measurements `json:"measurements"`
}

func (a *API) submitPhysical(w http.ResponseWriter, r *http.Request, id domain.SampleID) {
	var req physicalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	result, err := a.evaluations.SubmitPhysical(r.Context(), evaluation.PhysicalRequest{
		SampleID:     id,
		DirectorID:   domain.UserID(req.DirectorID),
		Measurements: req.Measurements,
	})
	if err != nil {
		a.logger.Warn("physical evaluation rejected", "err", err, "sample", id)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
	a.logger.Info("physical evaluation recorded", "sample", id, "outcome", result.GlobalEvaluation)
}

func (a *API) transitionSample(w http.ResponseWriter, r *http.Request, id domain.SampleID, fn func(context.Context, domain.SampleID) error) {
	if err := fn(r.Context(), id); err != nil {
		a.logger.Warn("sample transition rejected", "err", err, "sample", id)
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleEvaluations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req evaluation.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		metrics.ObserveSubmission("invalid_payload")
		a.logger.Warn("invalid evaluation payload", "err", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	result, err := a.evaluations.SubmitEvaluation(r.Context(), req)
	if err != nil {
		status := submissionStatus(err)
		metrics.ObserveSubmission(status)
		a.logger.Warn("evaluation rejected", "err", err, "sample", req.SampleID, "judge", req.JudgeID, "status", status)
		respondError(w, err)
		return
	}

	metrics.ObserveSubmission("accepted")
	respondJSON(w, http.StatusOK, result)
	a.logger.Info("evaluation recorded", "sample", req.SampleID, "judge", req.JudgeID, "overall", result.OverallQuality)
}

func (a *API) getResults(w http.ResponseWriter, r *http.Request, id domain.ContestID) {
	limit := a.topN
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	results, err := a.rankings.TopN(r.Context(), id, limit)
	if err != nil {
		a.logger.Error("failed to read results", "err", err, "contest", id)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, results)
}

func (a *API) recompute(w http.ResponseWriter, r *http.Request, id domain.ContestID) {
	results, err := a.rankings.Recompute(r.Context(), id)
	if err != nil {
		a.logger.Error("recompute failed", "err", err, "contest", id)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, results)
	a.logger.Info("recompute committed", "contest", id, "ranked", len(results))
}

func (a *API) getProgress(w http.ResponseWriter, r *http.Request, id domain.ContestID) {
	report, err := a.evaluations.Progress(r.Context(), id)
	if err != nil {
		a.logger.Error("failed to read progress", "err", err, "contest", id)
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, report)
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, contest.ErrInvalidContest),
		errors.Is(err, contest.ErrInvalidSample),
		errors.Is(err, evaluation.ErrInvalidSubmission):
		status = http.StatusBadRequest
	case errors.Is(err, contest.ErrContestNotFound),
		errors.Is(err, evaluation.ErrContestNotFound),
		errors.Is(err, evaluation.ErrSampleNotFound),
		errors.Is(err, ranking.ErrContestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, contest.ErrDirectorHasActive),
		errors.Is(err, contest.ErrContestNotAccepting),
		errors.Is(err, evaluation.ErrContestClosed),
		errors.Is(err, evaluation.ErrSampleNotApproved),
		errors.Is(err, evaluation.ErrSampleNotPending),
		errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, throttle.ErrRateLimitExceeded):
		status = http.StatusTooManyRequests
	}

	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func submissionStatus(err error) string {
	switch {
	case errors.Is(err, throttle.ErrRateLimitExceeded):
		return "rate_limited"
	case errors.Is(err, evaluation.ErrContestClosed):
		return "closed"
	case errors.Is(err, evaluation.ErrInvalidSubmission),
		errors.Is(err, evaluation.ErrSampleNotApproved):
		return "invalid"
	case errors.Is(err, evaluation.ErrSampleNotFound),
		errors.Is(err, evaluation.ErrContestNotFound):
		return "not_found"
	default:
		return "error"
	}
}
