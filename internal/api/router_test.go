package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/Skufu/fisioplan/internal/recommend"
	"github.com/Skufu/fisioplan/internal/store"
)

type fakeStore struct {
	err     error
	pingErr error
	saved   []store.Record
}

func (f *fakeStore) Ping(ctx context.Context) error {
	return f.pingErr
}

func (f *fakeStore) Save(ctx context.Context, patientID string, profile recommend.PatientProfile, rec recommend.TreatmentRecommendation) (store.Record, error) {
	if f.err != nil {
		return store.Record{}, f.err
	}
	r := store.Record{ID: uuid.New(), PatientID: patientID, Profile: profile, Recommendation: rec, CreatedAt: time.Now()}
	f.saved = append(f.saved, r)
	return r, nil
}

func (f *fakeStore) ListByPatient(ctx context.Context, patientID string, limit int) ([]store.Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []store.Record
	for i := len(f.saved) - 1; i >= 0; i-- {
		if f.saved[i].PatientID == patientID {
			out = append(out, f.saved[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeCache struct {
	entries map[string]recommend.TreatmentRecommendation
	getErr  error
	sets    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]recommend.TreatmentRecommendation{}}
}

func (f *fakeCache) key(p recommend.PatientProfile) string {
	raw, _ := json.Marshal(p)
	return string(raw)
}

func (f *fakeCache) Ping(ctx context.Context) error { return nil }

func (f *fakeCache) Get(ctx context.Context, p recommend.PatientProfile) (recommend.TreatmentRecommendation, bool, error) {
	if f.getErr != nil {
		return recommend.TreatmentRecommendation{}, false, f.getErr
	}
	rec, ok := f.entries[f.key(p)]
	return rec, ok, nil
}

func (f *fakeCache) Set(ctx context.Context, p recommend.PatientProfile, rec recommend.TreatmentRecommendation) error {
	f.sets++
	f.entries[f.key(p)] = rec
	return nil
}

func testEngine(t *testing.T) *recommend.Engine {
	t.Helper()
	e, err := recommend.NewEngine(recommend.DefaultKnowledge())
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return e
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	router.ServeHTTP(w, req)
	return w
}

const lombalgiaBody = `{"age":25,"condition":"lombalgia","severity":"mild","painLevel":2,"lifestyle":"active"}`

func TestRouterHealthz(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{Engine: testEngine(t)})

	w := doRequest(router, "GET", "/healthz", "")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestRouterReadyz(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := doRequest(NewRouter(Deps{Engine: testEngine(t)}), "GET", "/readyz", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"db":"disabled"`) {
		t.Fatalf("expected ok with db disabled, got %d %s", w.Code, w.Body.String())
	}

	router := NewRouter(Deps{Engine: testEngine(t), Store: &fakeStore{pingErr: errors.New("down")}, Cache: newFakeCache()})
	w = doRequest(router, "GET", "/readyz", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "degraded") || !strings.Contains(w.Body.String(), `"cache":"ok"`) {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestLimitBodySize(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(limitBodySize(10))
	router.POST("/echo", func(c *gin.Context) {
		_, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "too large"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	t.Run("within limit", func(t *testing.T) {
		w := doRequest(router, "POST", "/echo", "12345")
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", w.Code)
		}
	})

	t.Run("over limit", func(t *testing.T) {
		w := doRequest(router, "POST", "/echo", "01234567890")
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("expected 413, got %d", w.Code)
		}
	})
}

func TestCreateRecommendation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{Engine: testEngine(t)})

	w := doRequest(router, "POST", "/api/recommendations", lombalgiaBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp recommendationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Frequency != 3 || resp.Duration != 4 || len(resp.ProgressionPlan) != 2 {
		t.Fatalf("unexpected plan %+v", resp.TreatmentRecommendation)
	}
	if resp.ID != "" || resp.Cached {
		t.Fatalf("expected no id and no cache, got %+v", resp)
	}
	if len(resp.ExpectedOutcomes) != 3 || resp.ExpectedOutcomes[0].Metric != recommend.MetricPainReduction {
		t.Fatalf("unexpected outcomes %+v", resp.ExpectedOutcomes)
	}
}

func TestCreateRecommendationValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{Engine: testEngine(t)})

	w := doRequest(router, "POST", "/api/recommendations", `{
		"age": 40,
		"condition": "joelho",
		"severity": "moderate",
		"painLevel": 14,
		"lifestyle": "active"
	}`)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for validation failure, got %d", w.Code)
	}
	body := strings.ToLower(w.Body.String())
	if !strings.Contains(body, "validation_failed") || !strings.Contains(body, "painlevel must be at most 10") {
		t.Fatalf("expected validation error response, got %s", w.Body.String())
	}
}

func TestCreateRecommendationMalformed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{Engine: testEngine(t)})

	w := doRequest(router, "POST", "/api/recommendations", `{"age": "old"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	big := `{"condition":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	w = doRequest(router, "POST", "/api/recommendations", big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestCreateRecommendationUsesCache(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := newFakeCache()
	router := NewRouter(Deps{Engine: testEngine(t), Cache: c})

	first := doRequest(router, "POST", "/api/recommendations", lombalgiaBody)
	second := doRequest(router, "POST", "/api/recommendations", lombalgiaBody)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("unexpected status %d / %d", first.Code, second.Code)
	}
	if c.sets != 1 {
		t.Fatalf("expected one cache write, got %d", c.sets)
	}
	if !strings.Contains(second.Body.String(), `"cached":true`) {
		t.Fatalf("expected cached response, got %s", second.Body.String())
	}
}

func TestCreateRecommendationCacheErrorStillServes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := newFakeCache()
	c.getErr = errors.New("redis down")
	router := NewRouter(Deps{Engine: testEngine(t), Cache: c})

	w := doRequest(router, "POST", "/api/recommendations", lombalgiaBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCreateAndListPersisted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := &fakeStore{}
	router := NewRouter(Deps{Engine: testEngine(t), Store: s})

	body := `{"patientId":"p-42","age":70,"condition":"cervicalgia","severity":"severe","painLevel":8,"lifestyle":"sedentary"}`
	w := doRequest(router, "POST", "/api/recommendations", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(s.saved) != 1 || s.saved[0].PatientID != "p-42" {
		t.Fatalf("expected one saved record, got %+v", s.saved)
	}
	if !strings.Contains(w.Body.String(), s.saved[0].ID.String()) {
		t.Fatalf("expected id in response, got %s", w.Body.String())
	}

	w = doRequest(router, "GET", "/api/patients/p-42/recommendations?limit=5", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"patientId":"p-42"`) || !strings.Contains(w.Body.String(), "cervicalgia") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	w = doRequest(router, "GET", "/api/patients/p-42/recommendations?limit=zero", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestCreatePersistsClampedProfile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine, err := recommend.NewEngine(recommend.DefaultKnowledge(), recommend.WithInputPolicy(recommend.PolicyClamp))
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	s := &fakeStore{}
	router := NewRouter(Deps{Engine: engine, Store: s})

	body := `{"patientId":"p-7","age":140,"condition":"joelho","severity":"extreme","painLevel":14,"lifestyle":"active"}`
	w := doRequest(router, "POST", "/api/recommendations", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(s.saved) != 1 {
		t.Fatalf("expected one saved record, got %d", len(s.saved))
	}
	got := s.saved[0].Profile
	if got.Age != 130 || got.PainLevel != 10 || got.Severity != recommend.SeverityModerate {
		t.Fatalf("expected clamped profile to be stored, got %+v", got)
	}
}

func TestPersistFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{Engine: testEngine(t), Store: &fakeStore{err: errors.New("boom")}})

	w := doRequest(router, "POST", "/api/recommendations", `{"patientId":"p-1","age":30,"condition":"ombro","severity":"mild","painLevel":3,"lifestyle":"active"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestListWithoutStore(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{Engine: testEngine(t)})

	w := doRequest(router, "GET", "/api/patients/p-1/recommendations", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
}

func TestKnowledgeEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{Engine: testEngine(t)})

	w := doRequest(router, "GET", "/api/knowledge", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	for _, want := range []string{`"version":"2024.1"`, `"lombalgia"`, `"inputPolicy":"reject"`} {
		if !strings.Contains(w.Body.String(), want) {
			t.Fatalf("expected %s in %s", want, w.Body.String())
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(Deps{Engine: testEngine(t)})

	doRequest(router, "POST", "/api/recommendations", lombalgiaBody)
	w := doRequest(router, "GET", "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "fisioplan_recommendations_total") {
		t.Fatalf("expected metrics output, got %d", w.Code)
	}
}
