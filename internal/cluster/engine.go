package cluster

import (
	"sort"
	"time"

	"github.com/jwliu/vantage/internal/contracts"
	"github.com/jwliu/vantage/internal/strategyconfig"
	"github.com/jwliu/vantage/pkg/logger"
)

// Engine merges near-duplicate concept boards into virtual boards by
// constituent-set overlap. Two concepts land on the same virtual board
// when their Jaccard similarity meets the threshold, transitively
// (single-link agglomeration).
type Engine struct {
	config strategyconfig.Cluster
	logger *logger.Logger
}

// NewEngine creates a clustering engine
func NewEngine(cfg strategyconfig.Cluster, log *logger.Logger) *Engine {
	return &Engine{
		config: cfg,
		logger: log,
	}
}

// Build clusters one trade date's active concepts. Concepts with
// unresolved constituents never merge but stay in the mapping as
// singletons. An empty input yields an empty mapping.
func (e *Engine) Build(date time.Time, sectors []contracts.SectorSnapshot, constituents map[string][]string) *contracts.ClusterAssignment {
	assignment := &contracts.ClusterAssignment{
		Date:      date,
		Canonical: make(map[string]string),
		Members:   make(map[string][]string),
		Weight:    make(map[string]float64),
	}
	if len(sectors) == 0 {
		return assignment
	}

	// Stable processing order regardless of input order.
	names := make([]string, 0, len(sectors))
	byName := make(map[string]*contracts.SectorSnapshot, len(sectors))
	for i := range sectors {
		names = append(names, sectors[i].Name)
		byName[sectors[i].Name] = &sectors[i]
	}
	sort.Strings(names)

	sets := make(map[string]map[string]struct{}, len(names))
	for _, name := range names {
		codes := constituents[name]
		if len(codes) == 0 {
			continue // unresolved: similarity zero to everything
		}
		set := make(map[string]struct{}, len(codes))
		for _, code := range codes {
			set[code] = struct{}{}
		}
		sets[name] = set
	}

	uf := newUnionFind(names)
	for i := 0; i < len(names); i++ {
		a, ok := sets[names[i]]
		if !ok {
			continue
		}
		for j := i + 1; j < len(names); j++ {
			b, ok := sets[names[j]]
			if !ok {
				continue
			}
			if jaccard(a, b) >= e.config.JaccardThreshold {
				uf.union(names[i], names[j])
			}
		}
	}

	clusters := make(map[string][]string)
	for _, name := range names {
		root := uf.find(name)
		clusters[root] = append(clusters[root], name)
	}

	for _, members := range clusters {
		canonical := e.pickCanonical(members, byName)
		totalConstituents := 0
		for _, m := range members {
			totalConstituents += len(sets[m])
		}
		for _, m := range members {
			assignment.Canonical[m] = canonical
			if totalConstituents > 0 {
				assignment.Weight[m] = float64(len(sets[m])) / float64(totalConstituents)
			}
		}
		sort.Strings(members)
		assignment.Members[canonical] = members
	}

	e.logger.WithFields(map[string]interface{}{
		"date":     date.Format("2006-01-02"),
		"concepts": len(names),
		"boards":   assignment.BoardCount(),
	}).Info("Cluster assignment built")

	return assignment
}

// pickCanonical selects the member with the highest ranking key. Name
// ascending breaks exact ties so the choice is deterministic.
func (e *Engine) pickCanonical(members []string, byName map[string]*contracts.SectorSnapshot) string {
	best := members[0]
	bestKey := e.rankingKey(byName[best])
	for _, m := range members[1:] {
		key := e.rankingKey(byName[m])
		if key > bestKey || (key == bestKey && m < best) {
			best = m
			bestKey = key
		}
	}
	return best
}

func (e *Engine) rankingKey(s *contracts.SectorSnapshot) float64 {
	if s == nil {
		return 0
	}
	switch e.config.RankingKey {
	case strategyconfig.RankingKeyLimitUpCount:
		return float64(s.LimitUpCount)
	default:
		return s.MainNetInflow
	}
}

// jaccard returns |a∩b| / |a∪b|.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for k := range small {
		if _, ok := large[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind(names []string) *unionFind {
	uf := &unionFind{
		parent: make(map[string]string, len(names)),
		rank:   make(map[string]int, len(names)),
	}
	for _, n := range names {
		uf.parent[n] = n
	}
	return uf
}

func (uf *unionFind) find(x string) string {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]] // path halving
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b string) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}
