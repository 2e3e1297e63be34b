// Package route computes the routing table from the LSDB and projects
// it into per-prefix next-hop sets for the forwarder.
package route

import (
	"sync"
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/log"

	"github.com/named-data/nlsr/config"
	"github.com/named-data/nlsr/events"
	"github.com/named-data/nlsr/lsa"
	"github.com/named-data/nlsr/lsdb"
	"github.com/named-data/nlsr/seq"
	"github.com/named-data/nlsr/table"
)

// Debounce interval for FIB re-projection after prefix-only changes.
const projectionDebounce = time.Second

// Calculator schedules and runs routing table computation. Multiple
// trigger events within the calculation interval coalesce into one run.
type Calculator struct {
	mutex sync.Mutex

	config      *config.Config
	bus         *events.Bus
	db          *lsdb.Lsdb
	adjacencies *table.AdjacencyList
	npt         *table.NamePrefixTable
	fib         *table.Fib

	rt *table.RoutingTable

	calcScheduled bool
	projScheduled bool
}

func NewCalculator(c *config.Config, bus *events.Bus, db *lsdb.Lsdb,
	al *table.AdjacencyList, npt *table.NamePrefixTable, fib *table.Fib) *Calculator {
	return &Calculator{
		config:      c,
		bus:         bus,
		db:          db,
		adjacencies: al,
		npt:         npt,
		fib:         fib,
		rt:          table.NewRoutingTable(),
	}
}

func (calc *Calculator) String() string {
	return "route-calculator"
}

func (calc *Calculator) RoutingTable() *table.RoutingTable {
	calc.mutex.Lock()
	defer calc.mutex.Unlock()
	return calc.rt
}

// ScheduleCalculation requests a routing table recomputation. Pending
// requests are coalesced; rescheduling replaces nothing and never
// duplicates fires.
func (calc *Calculator) ScheduleCalculation() {
	calc.mutex.Lock()
	if calc.calcScheduled {
		calc.mutex.Unlock()
		return
	}
	calc.calcScheduled = true
	calc.mutex.Unlock()

	log.Debug(calc, "Scheduled routing table calculation")
	time.AfterFunc(calc.config.RoutingCalcInterval(), func() {
		calc.mutex.Lock()
		calc.calcScheduled = false
		calc.mutex.Unlock()
		calc.Calculate()
	})
}

// ScheduleProjection requests a FIB re-projection from the current
// routing table, without recomputing paths.
func (calc *Calculator) ScheduleProjection() {
	calc.mutex.Lock()
	if calc.projScheduled {
		calc.mutex.Unlock()
		return
	}
	calc.projScheduled = true
	calc.mutex.Unlock()

	time.AfterFunc(projectionDebounce, func() {
		calc.mutex.Lock()
		calc.projScheduled = false
		calc.mutex.Unlock()
		calc.Project()
	})
}

// Calculate recomputes the routing table from a consistent snapshot of
// the LSDB, then projects it into the FIB.
func (calc *Calculator) Calculate() {
	var rt *table.RoutingTable
	switch calc.config.Hyperbolic() {
	case seq.HyperbolicOff:
		rt = calc.calculateLinkState()
	case seq.HyperbolicDryRun:
		dry := calc.calculateHyperbolic()
		log.Debug(calc, "Hyperbolic dry-run results", "table", dry)
		rt = calc.calculateLinkState()
	case seq.HyperbolicOn:
		rt = calc.calculateHyperbolic()
	}

	calc.mutex.Lock()
	calc.rt = rt
	calc.mutex.Unlock()

	log.Debug(calc, "Routing table recomputed", "destinations", rt.Size())
	calc.Project()
	calc.bus.Emit(events.Event{Kind: events.RoutingRecomputed})
}

// Project rebuilds the name prefix table from the routing table and the
// prefixes advertised in Name and MIDST LSAs, then diffs the result
// against the FIB shadow.
func (calc *Calculator) Project() {
	calc.mutex.Lock()
	rt := calc.rt
	calc.mutex.Unlock()

	own := calc.config.RouterPrefix()

	calc.npt.Reset()
	for _, entry := range rt.Entries() {
		if entry.Dest.Equal(own) || len(entry.NextHops) == 0 {
			continue
		}

		// Prefixes advertised by the destination router
		if l, ok := calc.db.Lookup(entry.Dest, lsa.TypeName).(*lsa.NameLsa); ok {
			for _, prefix := range l.Names.Names() {
				calc.npt.Add(prefix, entry.NextHops)
			}
		}

		// Prefixes anchored at the destination router, from any MIDST LSA
		for _, ml := range calc.db.Iterate(lsa.TypeMidst) {
			for _, e := range ml.(*lsa.MidstLsa).List.Entries() {
				if e.Anchor.Equal(entry.Dest) {
					calc.npt.Add(e.Name, entry.NextHops)
				}
			}
		}
	}

	// Apply the target state to the FIB shadow; prefixes the new
	// projection no longer names are withdrawn by the sweep.
	calc.fib.BeginUpdate()
	for _, entry := range calc.npt.Entries() {
		calc.fib.Update(entry.Name, entry.NextHops.Trim(calc.config.MaxFacesPerPrefix))
	}
	calc.fib.Sweep()
}

// graph is the directed adjacency view derived from the LSDB snapshot.
type graph struct {
	names map[uint64]enc.Name
	edges map[uint64]map[uint64]float64
}

func (calc *Calculator) buildGraph() *graph {
	g := &graph{
		names: make(map[uint64]enc.Name),
		edges: make(map[uint64]map[uint64]float64),
	}
	for _, l := range calc.db.Iterate(lsa.TypeAdjacency) {
		al := l.(*lsa.AdjLsa)
		from := al.OriginRouter.Hash()
		g.names[from] = al.OriginRouter
		if g.edges[from] == nil {
			g.edges[from] = make(map[uint64]float64)
		}
		for _, adj := range al.Adjacencies {
			to := adj.Name.Hash()
			if _, ok := g.names[to]; !ok {
				g.names[to] = adj.Name
			}
			g.edges[from][to] = adj.Cost
		}
	}
	return g
}

// calculateLinkState computes shortest paths over the AdjacencyLSA
// graph. For every destination, all next hops within the configured
// cost tolerance of the best path are included, ordered by ascending
// cost and bounded by the per-prefix face limit.
func (calc *Calculator) calculateLinkState() *table.RoutingTable {
	rt := table.NewRoutingTable()
	g := calc.buildGraph()
	own := calc.config.RouterPrefix()
	ownH := own.Hash()

	// distance maps per active neighbor, with the source excluded so a
	// path never turns back through this router
	type neighborDist struct {
		adj  *table.Adjacent
		dist map[uint64]float64
	}
	var nds []neighborDist
	for _, adj := range calc.adjacencies.Adjacents() {
		if adj.Status != table.StatusActive || adj.FaceId == 0 {
			continue
		}
		nbH := adj.Name.Hash()
		linkCost, ok := g.edges[ownH][nbH]
		if !ok {
			linkCost = adj.LinkCost
		}
		dist := dijkstra(g, nbH, ownH)
		for dest := range dist {
			dist[dest] += linkCost
		}
		nds = append(nds, neighborDist{adj: adj, dist: dist})
	}

	for destH, destName := range g.names {
		if destH == ownH {
			continue
		}

		best := table.CostInfinity
		for _, nd := range nds {
			if d, ok := nd.dist[destH]; ok && d < best {
				best = d
			}
		}
		if best >= table.CostInfinity {
			continue
		}

		var hops table.NextHopList
		limit := best * (1 + calc.config.MaxFacesTolerance)
		for _, nd := range nds {
			if d, ok := nd.dist[destH]; ok && d <= limit {
				hops = append(hops, table.NextHop{
					Neighbor: nd.adj.Name,
					FaceId:   nd.adj.FaceId,
					Cost:     d,
				})
			}
		}
		hops.Sort()
		rt.Set(destName, hops.Trim(calc.config.MaxFacesPerPrefix))
	}

	return rt
}

// dijkstra returns shortest distances from src over g, never visiting
// the excluded vertex.
func dijkstra(g *graph, src uint64, exclude uint64) map[uint64]float64 {
	dist := map[uint64]float64{src: 0}
	done := make(map[uint64]bool)

	for {
		// next unsettled vertex with the smallest distance
		u, ud := uint64(0), table.CostInfinity
		for v, d := range dist {
			if !done[v] && d < ud {
				u, ud = v, d
			}
		}
		if ud >= table.CostInfinity {
			return dist
		}
		done[u] = true

		for v, cost := range g.edges[u] {
			if v == exclude || cost < 0 {
				continue
			}
			if d, ok := dist[v]; !ok || ud+cost < d {
				dist[v] = ud + cost
			}
		}
	}
}
