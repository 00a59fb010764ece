package travel

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-route-planner/internal/geo"
	"field-route-planner/internal/models"
)

func TestHaversineEstimator(t *testing.T) {
	est := NewHaversineEstimator(60, 0) // 1 mile per minute
	ctx := context.Background()

	a := geo.Point{Lat: 30.4515, Lon: -91.1871}
	b := geo.Point{Lat: 29.9511, Lon: -90.0715}

	min, err := est.TravelMinutes(ctx, a, b)
	require.NoError(t, err)
	assert.InDelta(t, geo.DistanceMiles(a, b), min, 0.001)

	// Symmetric through the unordered pair key.
	back, err := est.TravelMinutes(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, min, back)
}

func TestHaversineEstimatorIdenticalCoordinates(t *testing.T) {
	est := NewHaversineEstimator(0, 0)
	p := geo.Point{Lat: 30.45152, Lon: -91.18711}
	q := geo.Point{Lat: 30.45152, Lon: -91.18711}

	min, err := est.TravelMinutes(context.Background(), p, q)
	require.NoError(t, err)
	assert.Zero(t, min)
}

func TestPairKeyNormalization(t *testing.T) {
	a := geo.Point{Lat: 30, Lon: -91}
	b := geo.Point{Lat: 35, Lon: -80}
	assert.Equal(t, makePairKey(a, b), makePairKey(b, a))
	assert.True(t, makePairKey(a, a).zero)
}

func TestBuildMatrix(t *testing.T) {
	sites := []models.Site{
		{ID: "a", Lat: 30.0, Lon: -91.0, ServiceMinutes: 60},
		{ID: "b", Lat: 30.1, Lon: -91.0, ServiceMinutes: 45},
		{ID: "c", Lat: 30.2, Lon: -91.0, ServiceMinutes: 30},
	}
	m, err := BuildMatrix(context.Background(), NewHaversineEstimator(0, 0), sites)
	require.NoError(t, err)

	assert.Equal(t, 3, m.Len())
	assert.Zero(t, m.Travel(1, 1))
	assert.Equal(t, m.Travel(0, 2), m.Travel(2, 0))
	assert.Greater(t, m.Travel(0, 2), m.Travel(0, 1))

	service, travel := m.RouteMinutes([]int{0, 1, 2})
	assert.Equal(t, 135, service)
	// No depot legs: just a->b plus b->c.
	assert.Equal(t, m.Travel(0, 1)+m.Travel(1, 2), travel)

	service, travel = m.RouteMinutes([]int{1})
	assert.Equal(t, 45, service)
	assert.Zero(t, travel)
}

func TestBuildMatrixPrewarmsOSRM(t *testing.T) {
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		w.Write([]byte(`{"code":"Ok","durations":[[0,600,1200],[600,0,600],[1200,600,0]]}`))
	}))
	defer srv.Close()

	sites := []models.Site{
		{ID: "a", Lat: 30.0, Lon: -91.0, ServiceMinutes: 30},
		{ID: "b", Lat: 30.1, Lon: -91.0, ServiceMinutes: 30},
		{ID: "c", Lat: 30.2, Lon: -91.0, ServiceMinutes: 30},
	}
	m, err := BuildMatrix(context.Background(), NewOSRMEstimator(srv.URL, nil), sites)
	require.NoError(t, err)

	// One table request covers every pair; the pair loop hits the cache.
	assert.Equal(t, 1, requests)
	assert.Equal(t, 10, m.Travel(0, 1))
	assert.Equal(t, 20, m.Travel(0, 2))
	assert.Equal(t, m.Travel(1, 2), m.Travel(2, 1))
}

type fixedStore struct {
	entry *CacheEntry
	gets  int
}

func (s *fixedStore) Get(context.Context, geo.Point, geo.Point) (*CacheEntry, error) {
	s.gets++
	return s.entry, nil
}

func (s *fixedStore) SetBatch(context.Context, []CacheEntry) error { return nil }

func TestOSRMEstimatorUsesStore(t *testing.T) {
	a := geo.Point{Lat: 30, Lon: -91}
	b := geo.Point{Lat: 35, Lon: -80}
	store := &fixedStore{entry: &CacheEntry{Origin: a, Dest: b, TravelMinutes: 123}}

	est := NewOSRMEstimator("http://localhost:1", store) // unreachable on purpose
	min, err := est.TravelMinutes(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, 123.0, min)
	assert.Equal(t, 1, store.gets)

	// Second lookup is served by the process LRU, not the store.
	_, err = est.TravelMinutes(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, 1, store.gets)
}
