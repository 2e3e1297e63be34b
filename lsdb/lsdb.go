// Package lsdb implements the Link-State Database: typed storage of
// LSAs with freshness, supersession, and update semantics.
package lsdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/log"

	"github.com/named-data/nlsr/config"
	"github.com/named-data/nlsr/events"
	"github.com/named-data/nlsr/lsa"
	"github.com/named-data/nlsr/seq"
	"github.com/named-data/nlsr/table"
)

// key is the primary key of an LSA within the database.
type key struct {
	origin uint64
	typ    lsa.Type
}

// Lsdb stores at most one LSA per (origin router, type). A stored LSA's
// sequence number is strictly greater than any ever observed with the
// same key. Entries carry a TTL; expired self-originated LSAs are
// rebuilt with the next sequence number, others are evicted.
type Lsdb struct {
	mutex sync.Mutex

	config      *config.Config
	bus         *events.Bus
	seq         *seq.Manager
	adjacencies *table.AdjacencyList

	cache *ttlcache.Cache[key, lsa.Lsa]

	// debounce state for own AdjLsa rebuilds
	adjBuildScheduled bool
}

func NewLsdb(c *config.Config, bus *events.Bus, sm *seq.Manager, al *table.AdjacencyList) *Lsdb {
	db := &Lsdb{
		config:      c,
		bus:         bus,
		seq:         sm,
		adjacencies: al,
	}

	db.cache = ttlcache.New[key, lsa.Lsa](
		ttlcache.WithDisableTouchOnHit[key, lsa.Lsa](),
	)
	db.cache.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[key, lsa.Lsa]) {
		if reason == ttlcache.EvictionReasonExpired {
			go db.onExpired(item.Value())
		}
	})

	return db
}

func (db *Lsdb) String() string {
	return "lsdb"
}

// Start launches the expiry loop.
func (db *Lsdb) Start() {
	go db.cache.Start()
}

func (db *Lsdb) Stop() {
	db.cache.Stop()
}

// Install applies the LSA install protocol and returns whether the LSA
// was accepted (inserted or merged). Stale and duplicate sequence
// numbers are discarded.
func (db *Lsdb) Install(l lsa.Lsa) bool {
	db.mutex.Lock()
	accepted, evs := db.installLocked(l)
	db.mutex.Unlock()

	for _, ev := range evs {
		db.bus.Emit(ev)
	}
	return accepted
}

func (db *Lsdb) installLocked(l lsa.Lsa) (bool, []events.Event) {
	k := keyOf(l.Hdr().OriginRouter, l.Type())

	item := db.cache.Get(k)
	if item == nil {
		db.cache.Set(k, l, db.entryTTL(l))
		log.Debug(db, "Installed LSA", "type", l.Type(), "origin", l.Hdr().OriginRouter, "seq", l.Hdr().SeqNo)
		return true, []events.Event{{Kind: events.LsaInstalled, Lsa: l}}
	}

	existing := item.Value()
	if l.Hdr().SeqNo < existing.Hdr().SeqNo {
		log.Debug(db, "Discarding stale LSA", "type", l.Type(), "origin", l.Hdr().OriginRouter,
			"seq", l.Hdr().SeqNo, "have", existing.Hdr().SeqNo)
		return false, nil
	}
	if l.Hdr().SeqNo == existing.Hdr().SeqNo {
		// Same sequence number must mean same content.
		if !equalContent(existing, l) {
			log.Warn(db, "Sequence number collision with different content",
				"type", l.Type(), "origin", l.Hdr().OriginRouter, "seq", l.Hdr().SeqNo)
		}
		return false, nil
	}

	changed, added, removed := existing.Update(l)
	db.cache.Set(k, existing, db.entryTTL(existing))

	if !changed {
		return true, nil
	}
	log.Debug(db, "Updated LSA", "type", l.Type(), "origin", l.Hdr().OriginRouter, "seq", l.Hdr().SeqNo)
	return true, []events.Event{{
		Kind:         events.LsaUpdated,
		Lsa:          existing,
		NamesAdded:   added,
		NamesRemoved: removed,
	}}
}

func equalContent(a, b lsa.Lsa) bool {
	switch x := a.(type) {
	case *lsa.NameLsa:
		y, ok := b.(*lsa.NameLsa)
		return ok && x.Names.Equal(y.Names)
	case *lsa.AdjLsa:
		y, ok := b.(*lsa.AdjLsa)
		return ok && x.IsEqualContent(y)
	case *lsa.CoordinateLsa:
		y, ok := b.(*lsa.CoordinateLsa)
		return ok && x.IsEqualContent(y)
	case *lsa.MidstLsa:
		y, ok := b.(*lsa.MidstLsa)
		return ok && x.IsEqualContent(y)
	}
	return false
}

// entryTTL computes the expiry timer for an LSA. The advertised
// expiration time is used when plausible; otherwise one refresh cycle.
func (db *Lsdb) entryTTL(l lsa.Lsa) time.Duration {
	if ttl := time.Until(l.Hdr().ExpireAt); ttl > 0 && ttl <= 2*db.config.LsaRefreshTime() {
		return ttl
	}
	return db.config.LsaRefreshTime()
}

// onExpired handles an expiry timer fire: self-originated LSAs are
// rebuilt and re-installed with the next sequence number, all others
// are removed from the view.
func (db *Lsdb) onExpired(l lsa.Lsa) {
	if l.Hdr().OriginRouter.Equal(db.config.RouterPrefix()) {
		log.Debug(db, "Refreshing own LSA", "type", l.Type(), "seq", l.Hdr().SeqNo)
		switch l.Type() {
		case lsa.TypeName:
			db.BuildAndInstallOwnNameLsa()
		case lsa.TypeAdjacency:
			db.BuildAndInstallOwnAdjLsa()
		case lsa.TypeCoordinate:
			db.BuildAndInstallOwnCoordinateLsa()
		case lsa.TypeMidst:
			db.BuildAndInstallOwnMidstLsa()
		}
		return
	}

	log.Debug(db, "LSA expired", "type", l.Type(), "origin", l.Hdr().OriginRouter)
	db.bus.Emit(events.Event{Kind: events.LsaExpired, Lsa: l})
}

// Lookup returns the stored LSA for (origin, type), or nil.
func (db *Lsdb) Lookup(origin enc.Name, t lsa.Type) lsa.Lsa {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if item := db.cache.Get(keyOf(origin, t)); item != nil {
		return item.Value()
	}
	return nil
}

// Remove deletes the LSA for (origin, type).
func (db *Lsdb) Remove(origin enc.Name, t lsa.Type) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.cache.Delete(keyOf(origin, t))
}

// Iterate returns all stored LSAs of the given type.
func (db *Lsdb) Iterate(t lsa.Type) []lsa.Lsa {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	var out []lsa.Lsa
	for k, item := range db.cache.Items() {
		if k.typ == t {
			out = append(out, item.Value())
		}
	}
	return out
}

// WireEncode serializes all MIDST LSAs for transmission to neighbor,
// adding the cost of the link to that neighbor to every contained
// distance.
func (db *Lsdb) WireEncode(neighbor enc.Name) (enc.Wire, error) {
	adj := db.adjacencies.Get(neighbor)
	if adj == nil {
		return nil, fmt.Errorf("%s is not a known neighbor", neighbor)
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	var wire enc.Wire
	for k, item := range db.cache.Items() {
		if k.typ != lsa.TypeMidst {
			continue
		}
		midst := item.Value().(*lsa.MidstLsa)
		wire = append(wire, midst.EncodeForward(adj.LinkCost)...)
	}
	return wire, nil
}

// WireDecode parses the content of a distance-vector Data packet from
// origin and installs the contained LSAs. It returns origin's new MIDST
// sequence number, or zero if origin's own LSA was stale or absent.
func (db *Lsdb) WireDecode(origin enc.Name, wire enc.Wire) (uint64, error) {
	lsas, err := lsa.ParseAll(wire)
	if err != nil {
		return 0, err
	}

	var newSeq uint64
	for _, l := range lsas {
		accepted := db.Install(l)
		if accepted && l.Type() == lsa.TypeMidst && l.Hdr().OriginRouter.Equal(origin) {
			newSeq = l.Hdr().SeqNo
		}
	}
	return newSeq, nil
}

func keyOf(origin enc.Name, t lsa.Type) key {
	return key{origin: origin.Hash(), typ: t}
}
