package contracts

import "time"

// ClusterAssignment maps every active raw concept name to its canonical
// virtual-board name for one trade date. The mapping is total: concepts
// absent from the clustering input map to themselves.
type ClusterAssignment struct {
	Date time.Time `json:"date"`

	// Canonical maps raw concept -> virtual board name
	Canonical map[string]string `json:"canonical"`
	// Members is the reverse one-to-many mapping
	Members map[string][]string `json:"members"`
	// Weight is each member's contribution within its virtual board,
	// proportional to constituent count
	Weight map[string]float64 `json:"weight"`
}

// Resolve returns the canonical name for a concept. Unknown concepts
// resolve to themselves so the mapping stays total.
func (c *ClusterAssignment) Resolve(concept string) string {
	if canonical, ok := c.Canonical[concept]; ok {
		return canonical
	}
	return concept
}

// BoardOf returns the member list for a virtual board
func (c *ClusterAssignment) BoardOf(canonical string) []string {
	return c.Members[canonical]
}

// BoardCount returns the number of virtual boards
func (c *ClusterAssignment) BoardCount() int {
	return len(c.Members)
}
