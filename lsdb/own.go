package lsdb

import (
	"time"

	"github.com/named-data/ndnd/std/log"

	"github.com/named-data/nlsr/lsa"
	"github.com/named-data/nlsr/seq"
	"github.com/named-data/nlsr/table"
)

// Debounce interval for own AdjLsa rebuilds. Multiple adjacency changes
// within this window coalesce into one build.
const adjLsaBuildDebounce = 5 * time.Second

func (db *Lsdb) ownHeader(seqNo uint64) lsa.Header {
	return lsa.Header{
		OriginRouter: db.config.RouterPrefix(),
		SeqNo:        seqNo,
		ExpireAt:     time.Now().Add(db.config.LsaRefreshTime()),
	}
}

// BuildAndInstallOwnNameLsa advertises the configured application
// prefixes. Under MIDST the same prefixes travel in the MIDST LSA
// instead.
func (db *Lsdb) BuildAndInstallOwnNameLsa() {
	if db.config.Midst() == seq.MidstOn {
		return
	}

	l := &lsa.NameLsa{
		Header: db.ownHeader(db.seq.IncrNameSeq()),
		Names:  lsa.NewNamePrefixList(db.config.AdvertisedPrefixes()...),
	}
	db.seq.Persist()
	db.Install(l)
}

// BuildAndInstallOwnAdjLsa rebuilds the adjacency LSA from the ACTIVE
// neighbors. Not used when hyperbolic routing is fully enabled.
func (db *Lsdb) BuildAndInstallOwnAdjLsa() {
	if db.config.Hyperbolic() == seq.HyperbolicOn {
		return
	}

	l := &lsa.AdjLsa{Header: db.ownHeader(db.seq.IncrAdjSeq())}
	for _, adj := range db.adjacencies.Adjacents() {
		if adj.Status != table.StatusActive {
			continue
		}
		l.Adjacencies = append(l.Adjacencies, lsa.Adjacency{
			Name: adj.Name,
			Uri:  adj.Uri,
			Cost: adj.LinkCost,
		})
	}
	db.seq.Persist()
	db.Install(l)
}

// ScheduleAdjLsaBuild coalesces adjacency changes into one AdjLsa build.
func (db *Lsdb) ScheduleAdjLsaBuild() {
	db.mutex.Lock()
	if db.adjBuildScheduled {
		db.mutex.Unlock()
		return
	}
	db.adjBuildScheduled = true
	db.mutex.Unlock()

	log.Debug(db, "Scheduled AdjLsa build")
	time.AfterFunc(adjLsaBuildDebounce, func() {
		db.mutex.Lock()
		db.adjBuildScheduled = false
		db.mutex.Unlock()
		db.BuildAndInstallOwnAdjLsa()
	})
}

// BuildAndInstallOwnCoordinateLsa advertises the configured hyperbolic
// coordinates.
func (db *Lsdb) BuildAndInstallOwnCoordinateLsa() {
	if db.config.Hyperbolic() == seq.HyperbolicOff {
		return
	}

	l := &lsa.CoordinateLsa{
		Header: db.ownHeader(db.seq.IncrCorSeq()),
		Radius: db.config.HyperbolicRadius,
		Angles: db.config.HyperbolicAngles,
	}
	db.seq.Persist()
	db.Install(l)
}

// BuildAndInstallOwnMidstLsa advertises the configured application
// prefixes as MIDST entries anchored at this router with distance zero.
func (db *Lsdb) BuildAndInstallOwnMidstLsa() {
	if db.config.Midst() == seq.MidstOff {
		return
	}

	seqNo := db.seq.IncrMidstSeq()
	pl := lsa.MidstPrefixList{}
	for _, name := range db.config.AdvertisedPrefixes() {
		pl.Insert(name, 0, db.config.RouterPrefix(), seqNo)
	}
	pl.Sort()

	l := &lsa.MidstLsa{
		Header: db.ownHeader(seqNo),
		List:   pl,
	}
	db.seq.Persist()
	db.Install(l)
}

// MidstSeqNo returns the current MIDST sequence number, used in
// outgoing distance-vector interest names.
func (db *Lsdb) MidstSeqNo() uint64 {
	return db.seq.MidstSeq()
}
