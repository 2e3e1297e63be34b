package table

import (
	"fmt"
	"sort"
	"strings"

	enc "github.com/named-data/ndnd/std/encoding"
)

// NextHop is one way to reach a destination router.
type NextHop struct {
	// Neighbor is the adjacent router the path goes through.
	Neighbor enc.Name
	// FaceId of the face towards the neighbor.
	FaceId uint64
	// Cost of the full path.
	Cost float64
}

// NextHopList is kept sorted by ascending cost.
type NextHopList []NextHop

func (nhl NextHopList) Sort() {
	sort.SliceStable(nhl, func(i, j int) bool {
		return nhl[i].Cost < nhl[j].Cost
	})
}

// Trim returns at most max entries; max <= 0 means unlimited.
func (nhl NextHopList) Trim(max int) NextHopList {
	if max <= 0 || len(nhl) <= max {
		return nhl
	}
	return nhl[:max]
}

// RoutingTable maps destination routers to their next-hop lists.
type RoutingTable struct {
	entries map[uint64]*RoutingEntry
}

type RoutingEntry struct {
	Dest     enc.Name
	NextHops NextHopList
}

func NewRoutingTable() *RoutingTable {
	return &RoutingTable{entries: make(map[uint64]*RoutingEntry)}
}

func (rt *RoutingTable) Set(dest enc.Name, hops NextHopList) {
	hops.Sort()
	rt.entries[dest.Hash()] = &RoutingEntry{Dest: dest.Clone(), NextHops: hops}
}

func (rt *RoutingTable) Get(dest enc.Name) *RoutingEntry {
	return rt.entries[dest.Hash()]
}

func (rt *RoutingTable) Entries() map[uint64]*RoutingEntry {
	return rt.entries
}

func (rt *RoutingTable) Size() int {
	return len(rt.entries)
}

func (rt *RoutingTable) String() string {
	var sb strings.Builder
	sb.WriteString("Routing table:\n")
	for _, e := range rt.entries {
		fmt.Fprintf(&sb, "  %s:\n", e.Dest)
		for _, nh := range e.NextHops {
			fmt.Fprintf(&sb, "    via %s face=%d cost=%g\n", nh.Neighbor, nh.FaceId, nh.Cost)
		}
	}
	return sb.String()
}
