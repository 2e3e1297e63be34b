package table

import (
	"math"

	enc "github.com/named-data/ndnd/std/encoding"
	mgmt "github.com/named-data/ndnd/std/ndn/mgmt_2022"
	"github.com/named-data/ndnd/std/types/optional"

	"github.com/named-data/nlsr/config"
	"github.com/named-data/nlsr/nfdc"
)

// CostInfinity marks an unreachable next hop.
const CostInfinity = float64(math.MaxFloat64)

// fibEntry is the installed state for one prefix: the cost currently
// registered per next-hop face, and the projection generation that last
// produced it.
type fibEntry struct {
	name enc.Name
	hops map[uint64]float64
	gen  uint64
}

// Fib mirrors the next-hop state installed in the forwarder. Every
// projection runs BeginUpdate, Update per prefix, then Sweep; the diff
// against the shadow decides which register and unregister commands the
// forwarder actually sees.
type Fib struct {
	config  *config.Config
	nfdc    *nfdc.MgmtThread
	entries map[uint64]*fibEntry
	// current projection generation; entries not restamped by Update
	// are withdrawn by Sweep
	gen uint64
}

func NewFib(config *config.Config, nfdc *nfdc.MgmtThread) *Fib {
	return &Fib{
		config:  config,
		nfdc:    nfdc,
		entries: make(map[uint64]*fibEntry),
	}
}

func (fib *Fib) String() string {
	return "fib"
}

func (fib *Fib) Size() int {
	return len(fib.entries)
}

// BeginUpdate opens a new projection generation.
func (fib *Fib) BeginUpdate() {
	fib.gen++
}

// Update reconciles the installed state for name with hops. Faces no
// longer present are unregistered, new faces registered, and cost
// changes re-registered. Returns true if the prefix remains installed
// with at least one next hop.
func (fib *Fib) Update(name enc.Name, hops NextHopList) bool {
	// Collapse to the cheapest cost per face; multi-homed prefixes can
	// reach the same face through several advertisers.
	target := make(map[uint64]float64, len(hops))
	for _, hop := range hops {
		if hop.FaceId == 0 || hop.Cost >= CostInfinity {
			continue
		}
		if cost, ok := target[hop.FaceId]; !ok || hop.Cost < cost {
			target[hop.FaceId] = hop.Cost
		}
	}

	hash := name.Hash()
	entry := fib.entries[hash]
	if entry == nil {
		if len(target) == 0 {
			return false
		}
		entry = &fibEntry{
			name: name.Clone(),
			hops: make(map[uint64]float64, len(target)),
		}
		fib.entries[hash] = entry
	}
	entry.gen = fib.gen

	for faceId := range entry.hops {
		if _, keep := target[faceId]; !keep {
			fib.unregister(entry.name, faceId)
			delete(entry.hops, faceId)
		}
	}
	for faceId, cost := range target {
		if installed, ok := entry.hops[faceId]; !ok || installed != cost {
			fib.register(entry.name, faceId, cost)
			entry.hops[faceId] = cost
		}
	}

	if len(entry.hops) == 0 {
		delete(fib.entries, hash)
		return false
	}
	return true
}

// Sweep withdraws every prefix the current generation did not touch.
func (fib *Fib) Sweep() {
	for hash, entry := range fib.entries {
		if entry.gen == fib.gen {
			continue
		}
		for faceId := range entry.hops {
			fib.unregister(entry.name, faceId)
		}
		delete(fib.entries, hash)
	}
}

// Refresh re-registers every installed entry. Run periodically to cope
// with forwarder restarts.
func (fib *Fib) Refresh() {
	for _, entry := range fib.entries {
		for faceId, cost := range entry.hops {
			fib.register(entry.name, faceId, cost)
		}
	}
}

// SetStrategy requests strategy for all data under prefix.
func (fib *Fib) SetStrategy(prefix enc.Name, strategy enc.Name) {
	fib.nfdc.Exec(nfdc.Cmd{
		Module: "strategy-choice",
		Cmd:    "set",
		Args: &mgmt.ControlArgs{
			Name:     prefix,
			Strategy: &mgmt.Strategy{Name: strategy},
		},
		Retries: 3,
	})
}

func (fib *Fib) register(name enc.Name, faceId uint64, cost float64) {
	fib.nfdc.Exec(nfdc.Cmd{
		Module: "rib",
		Cmd:    "register",
		Args: &mgmt.ControlArgs{
			Name:   name,
			FaceId: optional.Some(faceId),
			Cost:   optional.Some(uint64(math.Round(cost))),
			Origin: optional.Some(nfdc.RouteOriginNlsr),
		},
		Retries: 3,
	})
}

func (fib *Fib) unregister(name enc.Name, faceId uint64) {
	fib.nfdc.Exec(nfdc.Cmd{
		Module: "rib",
		Cmd:    "unregister",
		Args: &mgmt.ControlArgs{
			Name:   name,
			FaceId: optional.Some(faceId),
			Origin: optional.Some(nfdc.RouteOriginNlsr),
		},
		Retries: 3,
	})
}
