package budget

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmazer/wayfarer/pkg/domain"
)

var defaultOrder = []domain.ToolName{domain.ToolItinerary, domain.ToolTransport, domain.ToolLodging}

func sumFractions(f map[domain.ToolName]float64) float64 {
	var s float64
	for _, v := range f {
		s += v
	}
	return s
}

func TestAllocate_FirstToolBonus(t *testing.T) {
	a := NewAllocator(DefaultConfig())

	alloc := a.Allocate(30000, defaultOrder, nil, false)

	assert.InDelta(t, 12000, alloc.Amounts[domain.ToolItinerary], 0.01)
	assert.InDelta(t, 9000, alloc.Amounts[domain.ToolTransport], 0.01)
	assert.InDelta(t, 9000, alloc.Amounts[domain.ToolLodging], 0.01)
	assert.InDelta(t, 1.0, sumFractions(alloc.Fractions), 0.01)
	assert.Empty(t, alloc.Warnings)
}

func TestAllocate_ClampsNonPositiveBudget(t *testing.T) {
	a := NewAllocator(DefaultConfig())

	alloc := a.Allocate(-5, defaultOrder, nil, false)

	assert.Equal(t, 30000.0, alloc.Total)
	assert.Len(t, alloc.Warnings, 1)
	assert.InDelta(t, 30000, alloc.Amounts[domain.ToolItinerary]+alloc.Amounts[domain.ToolTransport]+alloc.Amounts[domain.ToolLodging], 0.01)
}

func TestAllocate_InternationalBoostsTransport(t *testing.T) {
	a := NewAllocator(DefaultConfig())

	domestic := a.Allocate(1000, defaultOrder, nil, false)
	abroad := a.Allocate(1000, defaultOrder, nil, true)

	assert.Greater(t, abroad.Fractions[domain.ToolTransport], domestic.Fractions[domain.ToolTransport])
	assert.InDelta(t, 1.0, sumFractions(abroad.Fractions), 0.01)
}

func TestAllocate_ExternalSplit(t *testing.T) {
	a := NewAllocator(DefaultConfig())
	order := []domain.ToolName{domain.ToolTransport, domain.ToolLodging}

	alloc := a.Allocate(1000, order, map[string]float64{"travel": 0.5, "accommodation": 0.5}, false)
	// 0.5/0.5 plus the bonus on the first tool: 0.6/0.4.
	assert.InDelta(t, 600, alloc.Amounts[domain.ToolTransport], 0.01)
	assert.InDelta(t, 400, alloc.Amounts[domain.ToolLodging], 0.01)
	assert.Empty(t, alloc.Warnings)

	partial := a.Allocate(1000, order, map[string]float64{"transport": 1}, false)
	assert.Len(t, partial.Warnings, 1)
	assert.InDelta(t, 1.0, sumFractions(partial.Fractions), 0.01)
}

func TestAllocate_MinShare(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FirstToolBonus = 0.9
	a := NewAllocator(cfg)

	alloc := a.Allocate(1000, defaultOrder, nil, false)

	for _, tool := range defaultOrder {
		assert.GreaterOrEqual(t, alloc.Fractions[tool], 0.049, tool)
	}
	assert.InDelta(t, 1.0, sumFractions(alloc.Fractions), 0.01)
}

func TestAllocate_SingleTool(t *testing.T) {
	a := NewAllocator(DefaultConfig())

	alloc := a.Allocate(500, []domain.ToolName{domain.ToolLodging}, nil, false)

	assert.InDelta(t, 1.0, alloc.Fractions[domain.ToolLodging], 1e-9)
	assert.InDelta(t, 500, alloc.Amounts[domain.ToolLodging], 1e-9)
}

func TestAllocate_Properties(t *testing.T) {
	a := NewAllocator(DefaultConfig())
	r := rand.New(rand.NewPCG(7, 11))

	for i := 0; i < 300; i++ {
		perm := r.Perm(len(domain.KnownTools))
		n := 1 + r.IntN(len(domain.KnownTools))
		order := make([]domain.ToolName, 0, n)
		for _, idx := range perm[:n] {
			order = append(order, domain.KnownTools[idx])
		}
		total := 1 + r.Float64()*100000
		intl := r.IntN(2) == 0

		first := a.Allocate(total, order, nil, intl)
		second := a.Allocate(total, order, nil, intl)

		require.Equal(t, first, second, "allocation must be deterministic")
		assert.InDelta(t, 1.0, sumFractions(first.Fractions), 0.01)
		for _, tool := range order {
			assert.Greater(t, first.Amounts[tool], 0.0)
		}
	}
}

func TestAllocator_Apply(t *testing.T) {
	s := domain.NewPlanState("r", "q")
	s.TotalBudget = 30000
	s.ExecutionOrder = defaultOrder

	NewAllocator(DefaultConfig()).Apply(s)

	assert.InDelta(t, 30000, s.TotalAllocated(), 0.01)
	assert.Equal(t, s.Allocation, s.InitialAllocation)

	s.Allocation[domain.ToolLodging] = 1
	assert.NotEqual(t, s.Allocation[domain.ToolLodging], s.InitialAllocation[domain.ToolLodging])
}
