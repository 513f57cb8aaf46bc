package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/global-partner-dev/cocoa-judging/internal/app/contest"
	"github.com/global-partner-dev/cocoa-judging/internal/app/evaluation"
	"github.com/global-partner-dev/cocoa-judging/internal/app/ranking"
	"github.com/global-partner-dev/cocoa-judging/internal/app/scoring"
	"github.com/global-partner-dev/cocoa-judging/internal/domain"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/ids"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/throttle"
	"github.com/global-partner-dev/cocoa-judging/internal/platform/tracking"
)

var testNow = time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)

type testClock struct{}

func (testClock) Now() time.Time { return testNow }

// setupAPI wires the real services over an in-memory store so requests cross
// every layer except actual storage.
func setupAPI(t *testing.T) (*http.ServeMux, *memStore) {
	t.Helper()

	store := newMemStore()
	gen := ids.NewGenerator()
	clock := testClock{}

	contestRepo := contestStore{store}
	sampleRepo := sampleStore{store}
	physicalRepo := physicalStore{store}
	evalRepo := evalStore{store}
	resultRepo := resultStore{store}

	aggregator := ranking.NewAggregator(contestRepo, evalRepo, resultRepo, gen, scoring.DefaultOutlierConfig())
	contests := contest.NewService(contestRepo, sampleRepo, clock, gen, tracking.NewGenerator())
	evaluations := evaluation.NewService(
		sampleRepo, contestRepo, physicalRepo, evalRepo,
		nil, nil, throttle.NewNoop(), aggregator,
		clock, gen,
	)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{}))
	api := New(contests, evaluations, aggregator, 0, logger)

	mux := http.NewServeMux()
	api.Register(mux)
	return mux, store
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&out))
	return out
}

func createContest(t *testing.T, mux *http.ServeMux, director string) domain.Contest {
	t.Helper()
	w := doJSON(t, mux, http.MethodPost, "/contests", map[string]any{
		"name":        "Harvest Cup 2026",
		"director_id": director,
		"start_date":  testNow.Add(-24 * time.Hour),
		"end_date":    testNow.Add(24 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[domain.Contest](t, w)
}

func registerSample(t *testing.T, mux *http.ServeMux, contestID domain.ContestID, category string) domain.Sample {
	t.Helper()
	w := doJSON(t, mux, http.MethodPost, "/samples", map[string]any{
		"contest_id": string(contestID),
		"owner_id":   "owner-1",
		"category":   category,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[domain.Sample](t, w)
}

func approveSample(t *testing.T, mux *http.ServeMux, id domain.SampleID) {
	t.Helper()

	w := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/samples/%s/receive", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, mux, http.MethodPost, fmt.Sprintf("/samples/%s/physical-evaluation", id), map[string]any{
		"director_id": "dir-1",
		"measurements": map[string]any{
			"humidity":                6.0,
			"broken_grains":           5,
			"flat_grains":             10,
			"purple_beans":            10,
			"well_fermented_beans":    55,
			"lightly_fermented_beans": 20,
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, mux, http.MethodPost, fmt.Sprintf("/samples/%s/approve", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestHandleHealthz(t *testing.T) {
	mux, _ := setupAPI(t)

	w := doJSON(t, mux, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestCreateContest_WhenValid_ShouldReturn201(t *testing.T) {
	mux, _ := setupAPI(t)

	created := createContest(t, mux, "dir-1")
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Harvest Cup 2026", created.Name)
}

func TestCreateContest_WhenDirectorAlreadyActive_ShouldReturn409(t *testing.T) {
	mux, _ := setupAPI(t)
	createContest(t, mux, "dir-1")

	w := doJSON(t, mux, http.MethodPost, "/contests", map[string]any{
		"name":        "Second Cup",
		"director_id": "dir-1",
		"start_date":  testNow.Add(-time.Hour),
		"end_date":    testNow.Add(time.Hour),
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateContest_WhenInvalidPayload_ShouldReturn400(t *testing.T) {
	mux, _ := setupAPI(t)

	req := httptest.NewRequest(http.MethodPost, "/contests", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListContests_ShouldIncludeDerivedStatus(t *testing.T) {
	mux, _ := setupAPI(t)
	createContest(t, mux, "dir-1")

	w := doJSON(t, mux, http.MethodGet, "/contests", nil)
	require.Equal(t, http.StatusOK, w.Code)

	views := decode[[]contest.ContestView](t, w)
	require.Len(t, views, 1)
	assert.Equal(t, contest.StatusActive, views[0].Status)
}

func TestRegisterSample_WhenValid_ShouldReturnTrackingCode(t *testing.T) {
	mux, _ := setupAPI(t)
	c := createContest(t, mux, "dir-1")

	sample := registerSample(t, mux, c.ID, "bean")

	assert.Equal(t, domain.StatusSubmitted, sample.Status)
	assert.True(t, strings.HasPrefix(sample.TrackingCode, "CC-"), sample.TrackingCode)
}

func TestRegisterSample_WhenUnknownContest_ShouldReturn404(t *testing.T) {
	mux, _ := setupAPI(t)

	w := doJSON(t, mux, http.MethodPost, "/samples", map[string]any{
		"contest_id": "missing",
		"owner_id":   "owner-1",
		"category":   "bean",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitPhysical_WhenDisqualifying_ShouldReportReasons(t *testing.T) {
	mux, _ := setupAPI(t)
	c := createContest(t, mux, "dir-1")
	sample := registerSample(t, mux, c.ID, "bean")

	w := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/samples/%s/receive", sample.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, mux, http.MethodPost, fmt.Sprintf("/samples/%s/physical-evaluation", sample.ID), map[string]any{
		"director_id": "dir-1",
		"measurements": map[string]any{
			"humidity":             9.5,
			"well_fermented_beans": 55,
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	result := decode[struct {
		GlobalEvaluation        string   `json:"global_evaluation"`
		DisqualificationReasons []string `json:"disqualification_reasons"`
	}](t, w)
	assert.Equal(t, "disqualified", result.GlobalEvaluation)
	assert.NotEmpty(t, result.DisqualificationReasons)

	// The sample is terminal now: judging it must fail with a conflict.
	w = doJSON(t, mux, http.MethodPost, "/evaluations", map[string]any{
		"sample_id": string(sample.ID),
		"judge_id":  "judge-1",
		"stage":     "sensory",
		"verdict":   "Approved",
		"cocoa":     map[string]any{"overall_quality": 8.0},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitEvaluation_FullFlow_ShouldRankSamples(t *testing.T) {
	mux, _ := setupAPI(t)
	c := createContest(t, mux, "dir-1")

	strong := registerSample(t, mux, c.ID, "bean")
	weak := registerSample(t, mux, c.ID, "bean")
	approveSample(t, mux, strong.ID)
	approveSample(t, mux, weak.ID)

	submissions := []struct {
		sample domain.SampleID
		judge  string
		score  float64
	}{
		{strong.ID, "judge-1", 9.0},
		{strong.ID, "judge-2", 8.6},
		{weak.ID, "judge-1", 5.0},
		{weak.ID, "judge-2", 5.4},
	}
	for _, sub := range submissions {
		w := doJSON(t, mux, http.MethodPost, "/evaluations", map[string]any{
			"sample_id": string(sub.sample),
			"judge_id":  sub.judge,
			"stage":     "sensory",
			"verdict":   "Approved",
			"cocoa":     map[string]any{"overall_quality": sub.score, "defects": 1.0},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		result := decode[evaluation.SubmitResult](t, w)
		assert.Equal(t, sub.score, result.OverallQuality)
		// Defects only move the advisory, never the stored score.
		require.NotNil(t, result.QualityAdvisory)
		assert.Equal(t, sub.score-1, *result.QualityAdvisory)
	}

	// Each submission recomputed inline; the projection is already current.
	w := doJSON(t, mux, http.MethodGet, fmt.Sprintf("/contests/%s/results", c.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	results := decode[[]domain.TopResult](t, w)
	require.Len(t, results, 2)
	assert.Equal(t, strong.ID, results[0].SampleID)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 8.8, results[0].Score)
	assert.Equal(t, weak.ID, results[1].SampleID)
	assert.Equal(t, 2, results[1].Rank)

	// Progress mirrors the evaluation counts per sample.
	w = doJSON(t, mux, http.MethodGet, fmt.Sprintf("/contests/%s/progress", c.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	progress := decode[evaluation.ProgressReport](t, w)
	assert.Equal(t, int64(4), progress.Total)
	assert.Equal(t, int64(2), progress.Samples[strong.ID])
	assert.Equal(t, int64(2), progress.Samples[weak.ID])
}

func TestSubmitEvaluation_WhenSampleNotApproved_ShouldReturn409(t *testing.T) {
	mux, _ := setupAPI(t)
	c := createContest(t, mux, "dir-1")
	sample := registerSample(t, mux, c.ID, "chocolate")

	w := doJSON(t, mux, http.MethodPost, "/evaluations", map[string]any{
		"sample_id": string(sample.ID),
		"judge_id":  "judge-1",
		"stage":     "sensory",
		"verdict":   "Approved",
		"chocolate": map[string]any{"color": 8.0},
	})

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSubmitEvaluation_WhenCategoryMismatch_ShouldReturn400(t *testing.T) {
	mux, _ := setupAPI(t)
	c := createContest(t, mux, "dir-1")
	sample := registerSample(t, mux, c.ID, "bean")
	approveSample(t, mux, sample.ID)

	w := doJSON(t, mux, http.MethodPost, "/evaluations", map[string]any{
		"sample_id": string(sample.ID),
		"judge_id":  "judge-1",
		"stage":     "sensory",
		"verdict":   "Approved",
		"chocolate": map[string]any{"color": 8.0},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetResults_WhenUnknownContest_ShouldReturn404(t *testing.T) {
	mux, _ := setupAPI(t)

	w := doJSON(t, mux, http.MethodGet, "/contests/missing/results", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetResults_WhenInvalidLimit_ShouldReturn400(t *testing.T) {
	mux, _ := setupAPI(t)
	c := createContest(t, mux, "dir-1")

	w := doJSON(t, mux, http.MethodGet, fmt.Sprintf("/contests/%s/results?limit=nope", c.ID), nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecompute_WhenEmptyContest_ShouldReturnEmptyRanking(t *testing.T) {
	mux, _ := setupAPI(t)
	c := createContest(t, mux, "dir-1")

	w := doJSON(t, mux, http.MethodPost, fmt.Sprintf("/contests/%s/recompute", c.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)

	results := decode[[]domain.TopResult](t, w)
	assert.Empty(t, results)
}

// memStore backs every repository port with plain maps. The per-port view
// types below exist because the ports share method names (Create, Upsert,
// ListByContest) with different signatures.
type memStore struct {
	contests  map[domain.ContestID]domain.Contest
	samples   map[domain.SampleID]domain.Sample
	physicals map[domain.SampleID]domain.PhysicalEvaluation
	evals     map[string]domain.Evaluation
	results   map[domain.ContestID][]domain.TopResult
}

func newMemStore() *memStore {
	return &memStore{
		contests:  make(map[domain.ContestID]domain.Contest),
		samples:   make(map[domain.SampleID]domain.Sample),
		physicals: make(map[domain.SampleID]domain.PhysicalEvaluation),
		evals:     make(map[string]domain.Evaluation),
		results:   make(map[domain.ContestID][]domain.TopResult),
	}
}

type contestStore struct{ *memStore }

func (s contestStore) Create(_ context.Context, c domain.Contest) error {
	s.contests[c.ID] = c
	return nil
}

func (s contestStore) FindByID(_ context.Context, id domain.ContestID) (domain.Contest, error) {
	c, ok := s.contests[id]
	if !ok {
		return domain.Contest{}, domain.ErrNotFound
	}
	return c, nil
}

func (s contestStore) List(_ context.Context) ([]domain.Contest, error) {
	out := make([]domain.Contest, 0, len(s.contests))
	for _, c := range s.contests {
		out = append(out, c)
	}
	return out, nil
}

func (s contestStore) ListIDs(_ context.Context) ([]domain.ContestID, error) {
	out := make([]domain.ContestID, 0, len(s.contests))
	for id := range s.contests {
		out = append(out, id)
	}
	return out, nil
}

func (s contestStore) CountActiveByDirector(_ context.Context, director domain.UserID, at time.Time) (int64, error) {
	var n int64
	for _, c := range s.contests {
		if c.DirectorID == director && !at.Before(c.StartDate) && !at.After(c.EndDate) {
			n++
		}
	}
	return n, nil
}

type sampleStore struct{ *memStore }

func (s sampleStore) Create(_ context.Context, sample domain.Sample) error {
	s.samples[sample.ID] = sample
	return nil
}

func (s sampleStore) FindByID(_ context.Context, id domain.SampleID) (domain.Sample, error) {
	sample, ok := s.samples[id]
	if !ok {
		return domain.Sample{}, domain.ErrNotFound
	}
	return sample, nil
}

func (s sampleStore) UpdateStatus(_ context.Context, id domain.SampleID, from, to domain.SampleStatus) error {
	sample, ok := s.samples[id]
	if !ok {
		return domain.ErrNotFound
	}
	if sample.Status != from {
		return domain.ErrConflict
	}
	sample.Status = to
	s.samples[id] = sample
	return nil
}

func (s sampleStore) ListByContest(_ context.Context, contestID domain.ContestID) ([]domain.Sample, error) {
	var out []domain.Sample
	for _, sample := range s.samples {
		if sample.ContestID == contestID {
			out = append(out, sample)
		}
	}
	return out, nil
}

type physicalStore struct{ *memStore }

func (s physicalStore) Upsert(_ context.Context, pe domain.PhysicalEvaluation) error {
	s.physicals[pe.SampleID] = pe
	return nil
}

func (s physicalStore) FindBySample(_ context.Context, sampleID domain.SampleID) (domain.PhysicalEvaluation, error) {
	pe, ok := s.physicals[sampleID]
	if !ok {
		return domain.PhysicalEvaluation{}, domain.ErrNotFound
	}
	return pe, nil
}

type evalStore struct{ *memStore }

func (s evalStore) Upsert(_ context.Context, e domain.Evaluation) error {
	key := fmt.Sprintf("%s|%s|%s", e.SampleID, e.JudgeID, e.Stage)
	if prev, ok := s.evals[key]; ok {
		e.ID = prev.ID
	}
	s.evals[key] = e
	return nil
}

func (s evalStore) FindBySampleAndJudge(_ context.Context, sampleID domain.SampleID, judgeID domain.UserID, stage domain.EvaluationStage) (domain.Evaluation, error) {
	e, ok := s.evals[fmt.Sprintf("%s|%s|%s", sampleID, judgeID, stage)]
	if !ok {
		return domain.Evaluation{}, domain.ErrNotFound
	}
	return e, nil
}

func (s evalStore) ApprovedScoresByContest(_ context.Context, contestID domain.ContestID) ([]domain.SampleScore, error) {
	var out []domain.SampleScore
	for _, e := range s.evals {
		if e.ContestID == contestID && e.Verdict == domain.VerdictApproved {
			out = append(out, domain.SampleScore{
				EvaluationID: e.ID,
				SampleID:     e.SampleID,
				ContestID:    e.ContestID,
				Score:        e.OverallQuality,
				SubmittedAt:  e.SubmittedAt,
			})
		}
	}
	return out, nil
}

func (s evalStore) CountBySample(_ context.Context, contestID domain.ContestID) (map[domain.SampleID]int64, error) {
	out := make(map[domain.SampleID]int64)
	for _, e := range s.evals {
		if e.ContestID == contestID {
			out[e.SampleID]++
		}
	}
	return out, nil
}

type resultStore struct{ *memStore }

func (s resultStore) ReplaceForContest(_ context.Context, contestID domain.ContestID, results []domain.TopResult) error {
	s.results[contestID] = append([]domain.TopResult(nil), results...)
	return nil
}

func (s resultStore) ListByContest(_ context.Context, contestID domain.ContestID, limit int) ([]domain.TopResult, error) {
	rows := s.results[contestID]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return append([]domain.TopResult(nil), rows...), nil
}
