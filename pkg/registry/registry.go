// Package registry holds the static, read-only node registry and the
// region-preferring placement algorithm (spec §4.2).
package registry

import (
	"fmt"

	"github.com/planetstore/gateway/pkg/config"
)

// Registry is immutable after construction — safe for concurrent reads
// from any number of goroutines without synchronization.
type Registry struct {
	nodes  []config.NodeInfo
	byID   map[string]config.NodeInfo
	region map[string][]config.NodeInfo
}

// New builds a Registry from the configured node list, preserving
// declared order (placement determinism per spec §4.2 item 3).
func New(nodes []config.NodeInfo) *Registry {
	r := &Registry{
		nodes:  append([]config.NodeInfo(nil), nodes...),
		byID:   make(map[string]config.NodeInfo, len(nodes)),
		region: make(map[string][]config.NodeInfo),
	}
	for _, n := range nodes {
		r.byID[n.NodeID] = n
		if n.Region != "" {
			r.region[n.Region] = append(r.region[n.Region], n)
		}
	}
	return r
}

// Len returns the total node count.
func (r *Registry) Len() int { return len(r.nodes) }

// Get returns the node for an id, if known.
func (r *Registry) Get(nodeID string) (config.NodeInfo, bool) {
	n, ok := r.byID[nodeID]
	return n, ok
}

// HasRegion reports whether any node declares the given region.
func (r *Registry) HasRegion(region string) bool {
	_, ok := r.region[region]
	return ok
}

// Regions returns the distinct declared region names, in first-seen
// order.
func (r *Registry) Regions() []string {
	seen := make(map[string]bool, len(r.region))
	var out []string
	for _, n := range r.nodes {
		if n.Region == "" || seen[n.Region] {
			continue
		}
		seen[n.Region] = true
		out = append(out, n.Region)
	}
	return out
}

// CapacityError is returned when fewer nodes exist than requested.
type CapacityError struct {
	Requested, Available int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("not enough storage nodes: need %d, have %d", e.Requested, e.Available)
}

// Select implements spec §4.2's select_nodes(count, preferred_region?).
func (r *Registry) Select(count int, preferredRegion string) ([]config.NodeInfo, error) {
	if count > len(r.nodes) {
		return nil, &CapacityError{Requested: count, Available: len(r.nodes)}
	}

	if preferredRegion == "" {
		return append([]config.NodeInfo(nil), r.nodes[:count]...), nil
	}
	regionNodes, known := r.region[preferredRegion]
	if !known {
		return append([]config.NodeInfo(nil), r.nodes[:count]...), nil
	}

	selected := make([]config.NodeInfo, 0, count)
	taken := make(map[string]bool, count)
	for _, n := range regionNodes {
		if len(selected) >= count {
			break
		}
		selected = append(selected, n)
		taken[n.NodeID] = true
	}
	if len(selected) < count {
		for _, n := range r.nodes {
			if len(selected) >= count {
				break
			}
			if taken[n.NodeID] {
				continue
			}
			selected = append(selected, n)
			taken[n.NodeID] = true
		}
	}
	return selected, nil
}
