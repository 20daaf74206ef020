package cluster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/strategyconfig"
	"github.com/jwliu/vantage/pkg/logger"
)

func testEngine(threshold float64) *Engine {
	return NewEngine(strategyconfig.Cluster{
		JaccardThreshold: threshold,
		RankingKey:       strategyconfig.RankingKeyMainNetInflow,
	}, logger.NewNop())
}

func testDate() time.Time {
	return time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)
}

func TestJaccard(t *testing.T) {
	set := func(codes ...string) map[string]struct{} {
		s := make(map[string]struct{})
		for _, c := range codes {
			s[c] = struct{}{}
		}
		return s
	}

	assert.Equal(t, 1.0, jaccard(set("a", "b"), set("a", "b")))
	assert.Equal(t, 0.0, jaccard(set("a"), set("b")))
	assert.InDelta(t, 2.0/3.0, jaccard(set("a", "b"), set("a", "b", "c")), 1e-9)
	assert.Equal(t, 0.0, jaccard(set(), set("a")))
}

func TestBuild_ThreeSectorExample(t *testing.T) {
	e := testEngine(0.6)

	sectors := []contracts.SectorSnapshot{
		{Name: "低空经济", Date: testDate(), MainNetInflow: 5e8},
		{Name: "通用航空", Date: testDate(), MainNetInflow: 3e8},
		{Name: "光伏", Date: testDate(), MainNetInflow: 1e8},
	}
	constituents := map[string][]string{
		"低空经济": {"000001", "000002"},
		"通用航空": {"000001", "000002", "000003"},
		"光伏":   {"000004"},
	}

	a := e.Build(testDate(), sectors, constituents)

	// Jaccard(低空经济, 通用航空) = 2/3 >= 0.6: merged. 光伏 stays alone.
	assert.Equal(t, 2, a.BoardCount())
	assert.Equal(t, "低空经济", a.Resolve("低空经济")) // highest main net inflow
	assert.Equal(t, "低空经济", a.Resolve("通用航空"))
	assert.Equal(t, "光伏", a.Resolve("光伏"))
	assert.ElementsMatch(t, []string{"低空经济", "通用航空"}, a.BoardOf("低空经济"))
}

func TestBuild_IdenticalSetsMergeAtAnyPositiveThreshold(t *testing.T) {
	for _, threshold := range []float64{0.1, 0.6, 1.0} {
		e := testEngine(threshold)
		a := e.Build(testDate(), []contracts.SectorSnapshot{
			{Name: "AI应用", MainNetInflow: 2e8},
			{Name: "人工智能", MainNetInflow: 1e8},
		}, map[string][]string{
			"AI应用":  {"300001", "300002"},
			"人工智能": {"300001", "300002"},
		})

		require.Equal(t, 1, a.BoardCount(), "threshold %v", threshold)
		assert.Equal(t, "AI应用", a.Resolve("人工智能"))
	}
}

func TestBuild_ThresholdOneIsIdentity(t *testing.T) {
	e := testEngine(1.0)

	a := e.Build(testDate(), []contracts.SectorSnapshot{
		{Name: "A"}, {Name: "B"}, {Name: "C"},
	}, map[string][]string{
		"A": {"000001", "000002"},
		"B": {"000001", "000002", "000003"},
		"C": {"000002", "000003"},
	})

	assert.Equal(t, 3, a.BoardCount())
	for _, name := range []string{"A", "B", "C"} {
		assert.Equal(t, name, a.Resolve(name))
	}
}

func TestBuild_TransitiveMerge(t *testing.T) {
	// A~B and B~C qualify; A~C does not. Single link still puts all
	// three on one board.
	e := testEngine(0.5)

	a := e.Build(testDate(), []contracts.SectorSnapshot{
		{Name: "A", MainNetInflow: 1e8},
		{Name: "B", MainNetInflow: 9e8},
		{Name: "C", MainNetInflow: 2e8},
	}, map[string][]string{
		"A": {"1", "2", "3"},
		"B": {"2", "3", "4"},
		"C": {"3", "4", "5"},
	})

	require.Equal(t, 1, a.BoardCount())
	assert.Equal(t, "B", a.Resolve("A"))
	assert.Equal(t, "B", a.Resolve("C"))
}

func TestBuild_Idempotent(t *testing.T) {
	e := testEngine(0.6)

	sectors := []contracts.SectorSnapshot{
		{Name: "低空经济", MainNetInflow: 5e8},
		{Name: "通用航空", MainNetInflow: 3e8},
		{Name: "光伏", MainNetInflow: 1e8},
	}
	constituents := map[string][]string{
		"低空经济": {"000001", "000002"},
		"通用航空": {"000001", "000002", "000003"},
		"光伏":   {"000004"},
	}

	first := e.Build(testDate(), sectors, constituents)

	// Re-cluster the virtual boards: each board's set is the union of
	// its members.
	boardSectors := make([]contracts.SectorSnapshot, 0, first.BoardCount())
	boardConstituents := make(map[string][]string)
	for canonical, members := range first.Members {
		seen := make(map[string]struct{})
		for _, m := range members {
			for _, code := range constituents[m] {
				if _, ok := seen[code]; !ok {
					seen[code] = struct{}{}
					boardConstituents[canonical] = append(boardConstituents[canonical], code)
				}
			}
		}
		boardSectors = append(boardSectors, contracts.SectorSnapshot{Name: canonical})
	}

	second := e.Build(testDate(), boardSectors, boardConstituents)

	assert.Equal(t, first.BoardCount(), second.BoardCount())
	for canonical := range first.Members {
		assert.Equal(t, canonical, second.Resolve(canonical))
	}
}

func TestBuild_UnresolvedConstituentsIsolate(t *testing.T) {
	e := testEngine(0.1)

	a := e.Build(testDate(), []contracts.SectorSnapshot{
		{Name: "A", MainNetInflow: 1e8},
		{Name: "B", MainNetInflow: 2e8},
	}, map[string][]string{
		"A": {"000001"},
		// B unresolved
	})

	assert.Equal(t, 2, a.BoardCount())
	assert.Equal(t, "B", a.Resolve("B"))
}

func TestBuild_EmptyInput(t *testing.T) {
	e := testEngine(0.6)

	a := e.Build(testDate(), nil, nil)

	assert.Equal(t, 0, a.BoardCount())
	// Mapping stays total: unknown concepts resolve to themselves.
	assert.Equal(t, "稀土永磁", a.Resolve("稀土永磁"))
}

func TestBuild_RankingKeyLimitUpCount(t *testing.T) {
	e := NewEngine(strategyconfig.Cluster{
		JaccardThreshold: 0.5,
		RankingKey:       strategyconfig.RankingKeyLimitUpCount,
	}, logger.NewNop())

	a := e.Build(testDate(), []contracts.SectorSnapshot{
		{Name: "A", MainNetInflow: 9e8, LimitUpCount: 2},
		{Name: "B", MainNetInflow: 1e8, LimitUpCount: 7},
	}, map[string][]string{
		"A": {"1", "2"},
		"B": {"1", "2"},
	})

	assert.Equal(t, "B", a.Resolve("A"))
}

func TestBuild_MemberWeights(t *testing.T) {
	e := testEngine(0.5)

	a := e.Build(testDate(), []contracts.SectorSnapshot{
		{Name: "A", MainNetInflow: 2e8},
		{Name: "B", MainNetInflow: 1e8},
	}, map[string][]string{
		"A": {"1", "2", "3"},
		"B": {"2", "3"},
	})

	require.Equal(t, 1, a.BoardCount())
	assert.InDelta(t, 0.6, a.Weight["A"], 1e-9)
	assert.InDelta(t, 0.4, a.Weight["B"], 1e-9)
}

func TestCache(t *testing.T) {
	c := NewCache()
	date := testDate()

	assert.Nil(t, c.Get(date))

	built := 0
	build := func() *contracts.ClusterAssignment {
		built++
		return &contracts.ClusterAssignment{Date: date, Canonical: map[string]string{}}
	}

	first := c.GetOrBuild(date, build)
	second := c.GetOrBuild(date, build)
	assert.Same(t, first, second)
	assert.Equal(t, 1, built)

	// A different date misses and rebuilds.
	next := date.AddDate(0, 0, 1)
	c.GetOrBuild(next, func() *contracts.ClusterAssignment {
		built++
		return &contracts.ClusterAssignment{Date: next}
	})
	assert.Equal(t, 2, built)
	assert.Nil(t, c.Get(date))

	c.Invalidate()
	assert.Nil(t, c.Get(next))
}
