package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cropscout/internal/domain/entity"
	"cropscout/internal/domain/port"
	"cropscout/internal/modelcache"
	"cropscout/internal/normalize"
	"cropscout/internal/quality"
)

type memRepo struct {
	mu         sync.Mutex
	fields     map[string]*entity.Field
	spots      map[string]*entity.Spot // с анализом
	persistErr error
	nextID     int
}

func newMemRepo() *memRepo {
	return &memRepo{fields: map[string]*entity.Field{}, spots: map[string]*entity.Spot{}}
}

func (r *memRepo) CreateField(_ context.Context, f *entity.Field) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == "" {
		r.nextID++
		f.ID = fmt.Sprintf("field-%d", r.nextID)
	}
	cp := *f
	r.fields[f.ID] = &cp
	return nil
}

func (r *memRepo) ListFields(context.Context) ([]entity.Field, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Field, 0, len(r.fields))
	for _, f := range r.fields {
		out = append(out, *f)
	}
	return out, nil
}

func (r *memRepo) FetchField(_ context.Context, id string) (*entity.Field, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.fields[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *f
	cp.Spots = []entity.Spot{}
	for _, s := range r.spots {
		if s.FieldID == id {
			cp.Spots = append(cp.Spots, *s)
		}
	}
	return &cp, nil
}

func (r *memRepo) PersistSpotAndAnalysis(_ context.Context, s *entity.Spot, a *entity.AnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.persistErr != nil {
		return r.persistErr
	}
	cp := *s
	ac := *a
	cp.Analysis = &ac
	r.spots[s.ID] = &cp
	return nil
}

func (r *memRepo) GetSpot(_ context.Context, id string) (*entity.Spot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.spots[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memRepo) DeleteSpot(_ context.Context, id string) (*entity.Spot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.spots[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	delete(r.spots, id)
	return s, nil
}

func (r *memRepo) DeleteField(_ context.Context, id string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.fields[id]; !ok {
		return nil, port.ErrNotFound
	}
	var handles []string
	for sid, s := range r.spots {
		if s.FieldID == id {
			handles = append(handles, s.ImageHandle)
			delete(r.spots, sid)
		}
	}
	delete(r.fields, id)
	return handles, nil
}

func (r *memRepo) Ping(context.Context) error { return nil }

func (r *memRepo) spotCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spots)
}

// addAnalyzed кладёт точку с готовым анализом напрямую в хранилище
func (r *memRepo) addAnalyzed(fieldID, spotID string, lat, lng float64, label entity.HealthLabel, conf float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spots[spotID] = &entity.Spot{
		ID: spotID, FieldID: fieldID, Latitude: lat, Longitude: lng,
		ImageHandle: fieldID + "/" + spotID + ".jpg",
		Analysis:    &entity.AnalysisResult{SpotID: spotID, Status: entity.StatusOK, HealthLabel: label, Confidence: conf},
	}
}

type memImages struct {
	mu      sync.Mutex
	data    map[string][]byte
	deleted []string
	saveErr error
}

func newMemImages() *memImages { return &memImages{data: map[string][]byte{}} }

func (m *memImages) Save(_ context.Context, data []byte, fieldID, spotID, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return "", m.saveErr
	}
	h := fieldID + "/" + spotID + ".jpg"
	m.data[h] = data
	return h, nil
}

func (m *memImages) Load(_ context.Context, h string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[h]
	if !ok {
		return nil, errors.New("no such image")
	}
	return d, nil
}

func (m *memImages) Delete(_ context.Context, h string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, h)
	m.deleted = append(m.deleted, h)
	return nil
}

func (m *memImages) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

type fakeProvider struct {
	models   []entity.ModelDescriptor
	probs    map[string]float64
	inferErr error
	block    chan struct{} // Infer ждёт закрытия, игнорируя контекст
	started  chan struct{}
	infers   atomic.Int32
	lastUsed atomic.Value
}

func (p *fakeProvider) ListAvailable(context.Context) ([]entity.ModelDescriptor, error) {
	return p.models, nil
}

func (p *fakeProvider) Load(_ context.Context, name string) (*entity.ModelHandle, error) {
	for _, m := range p.models {
		if m.Name == name {
			return &entity.ModelHandle{Descriptor: m, Ref: name}, nil
		}
	}
	return nil, errors.New("unknown model")
}

func (p *fakeProvider) Infer(_ context.Context, h *entity.ModelHandle, _ []byte) (map[string]float64, error) {
	p.infers.Add(1)
	p.lastUsed.Store(h.Descriptor.Name)
	if p.started != nil {
		p.started <- struct{}{}
	}
	if p.block != nil {
		<-p.block
	}
	return p.probs, p.inferErr
}

type fixedMeasure struct{ m port.Measurement }

func (f fixedMeasure) Measure([]byte) (port.Measurement, error) { return f.m, nil }

type passPrep struct{}

func (passPrep) Preprocess(b []byte) ([]byte, error) { return b, nil }

var sharp = port.Measurement{LaplacianVariance: 500, MeanBrightness: 128}

type harness struct {
	repo     *memRepo
	images   *memImages
	provider *fakeProvider
	guard    *FieldGuard
	spots    *SpotService
	fields   *FieldService
	summary  *SummaryService
	field    *entity.Field
}

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newHarness(t *testing.T, m port.Measurement, timeout time.Duration) *harness {
	t.Helper()
	h := &harness{
		repo:   newMemRepo(),
		images: newMemImages(),
		provider: &fakeProvider{
			models: []entity.ModelDescriptor{
				{Name: "MobileNetV3", ClassCount: 5},
				{Name: "CustomCNN1", ClassCount: 5},
			},
			probs: map[string]float64{"Leaf rust": 0.7, "Healthy": 0.2, "Miner": 0.1},
		},
		guard: NewFieldGuard(),
	}
	log := discardLogger()
	analyzer := NewAnalyzer(
		quality.NewGate(fixedMeasure{m}, quality.DefaultThresholds()),
		h.provider,
		modelcache.New(h.provider),
		passPrep{},
		normalize.New(normalize.DefaultThreshold),
		AnalyzerConfig{InferenceTimeout: timeout},
	)
	h.spots = NewSpotService(h.repo, h.images, analyzer, h.guard, log)
	h.fields = NewFieldService(h.repo, h.images, h.guard, log)
	h.summary = NewSummaryService(h.repo)

	f, err := h.fields.CreateField(context.Background(), CreateFieldInput{
		Name:    "Scenario A",
		Polygon: entity.Polygon{{0, 0}, {0, 10}, {10, 10}, {10, 0}},
	})
	require.NoError(t, err)
	h.field = f
	return h
}

func (h *harness) input() CreateSpotInput {
	return CreateSpotInput{
		FieldID:   h.field.ID,
		Latitude:  5,
		Longitude: 5,
		Image:     []byte("jpeg"),
		ImageName: "leaf.jpg",
	}
}

func requireCode(t *testing.T, err error, code entity.ErrorCode) *entity.Error {
	t.Helper()
	require.Error(t, err)
	var e *entity.Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, code, e.Code, err.Error())
	return e
}
