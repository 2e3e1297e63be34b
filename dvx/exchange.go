// Package dvx implements the MIDST distance-vector exchange: a
// neighbor-to-neighbor pull protocol that propagates prefix
// reachability with distance accumulation and anchor tracking.
package dvx

import (
	"sync"
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/log"
	"github.com/named-data/ndnd/std/ndn"
	"github.com/named-data/ndnd/std/types/optional"

	"github.com/named-data/nlsr/config"
	"github.com/named-data/nlsr/lsdb"
	"github.com/named-data/nlsr/table"
	"github.com/named-data/nlsr/trust"
)

// Freshness of distance-vector response data.
const dvDataFreshness = 10 * time.Second

var dvComponent = enc.NewGenericComponent("DV")

// processedEntry records the highest sequence number exchanged with a
// neighbor in either direction.
type processedEntry struct {
	neighbor enc.Name
	seqNo    uint64
}

type Exchange struct {
	mutex sync.Mutex

	config      *config.Config
	engine      ndn.Engine
	db          *lsdb.Lsdb
	adjacencies *table.AdjacencyList
	security    *trust.Security

	// processed neighbors vector, at most one entry per neighbor
	processed []processedEntry
}

func NewExchange(c *config.Config, engine ndn.Engine, db *lsdb.Lsdb,
	al *table.AdjacencyList, security *trust.Security) *Exchange {
	return &Exchange{
		config:      c,
		engine:      engine,
		db:          db,
		adjacencies: al,
		security:    security,
	}
}

func (x *Exchange) String() string {
	return "dvx"
}

// buildInterestName returns
// /<neighbor>/nlsr/DV/<ownMidstSeqNo>/<ownRouterWire>.
// The trailing component carries this router's prefix so the receiver
// can attribute the request.
func (x *Exchange) buildInterestName(neighbor enc.Name) enc.Name {
	return neighbor.
		Append(enc.NewGenericComponent("nlsr")).
		Append(dvComponent).
		Append(enc.NewNumberComponent(enc.TypeGenericNameComponent, x.db.MidstSeqNo())).
		Append(enc.NewGenericBytesComponent(x.config.RouterPrefix().Bytes()))
}

// ExpressInterest pulls the MIDST view of a neighbor.
func (x *Exchange) ExpressInterest(neighbor enc.Name, lifetime time.Duration) {
	name := x.buildInterestName(neighbor)
	log.Debug(x, "Expressing DV Interest", "name", name, "seq", x.db.MidstSeqNo())

	cfg := &ndn.InterestConfig{
		MustBeFresh: true,
		CanBePrefix: true,
		Lifetime:    optional.Some(lifetime),
	}
	interest, err := x.engine.Spec().MakeInterest(name, cfg, nil, nil)
	if err != nil {
		log.Error(x, "Failed to make DV Interest", "name", name, "err", err)
		return
	}

	err = x.engine.Express(interest, func(args ndn.ExpressCallbackArgs) {
		switch args.Result {
		case ndn.InterestResultData:
			x.onContent(args.Data, args.SigCovered)
		case ndn.InterestResultNack:
			log.Debug(x, "Received NACK for DV Interest, treating as timeout",
				"name", name, "reason", args.NackReason)
		default:
			// No retry at this layer; the next round is driven by
			// sequence number advances.
			log.Debug(x, "DV Interest timed out", "name", name)
		}
	})
	if err != nil {
		log.Error(x, "Failed to express DV Interest", "name", name, "err", err)
	}
}

func (x *Exchange) onContent(data ndn.Data, sigCov enc.Wire) {
	log.Debug(x, "Received DV data", "name", data.Name())

	x.security.Validate(data, sigCov, func(valid bool, err error) {
		if !valid {
			log.Warn(x, "DV data validation failed", "name", data.Name(), "err", err)
			return
		}
		x.onContentValidated(data)
	})
}

// onContentValidated processes validated distance-vector data
// /<neighbor>/nlsr/DV/<seqNo>/<ownRouterWire>/<version>/<segment>.
func (x *Exchange) onContentValidated(data ndn.Data) {
	dataName := data.Name()

	pos := -1
	for i, c := range dataName {
		if c.Typ == enc.TypeGenericNameComponent && string(c.Val) == "DV" {
			pos = i
			break
		}
	}
	if pos < 1 {
		log.Warn(x, "DV data name has no DV component", "name", dataName)
		return
	}

	// prefix of the originating router, up to the nlsr component
	origin := dataName.Prefix(pos - 1)

	content := data.Content()
	if content.Length() == 0 {
		log.Debug(x, "DV data content is empty", "name", dataName)
		return
	}

	newSeq, err := x.db.WireDecode(origin, content)
	if err != nil {
		log.Warn(x, "Failed to decode DV data", "name", dataName, "err", err)
		return
	}
	log.Debug(x, "Decoded DV data", "origin", origin, "seq", newSeq)

	if newSeq != 0 {
		x.insertProcessed(origin, newSeq)
		x.gossip(origin)
	}
}

// gossip fans out a pull to every ACTIVE adjacency except the router
// the data just came from.
func (x *Exchange) gossip(origin enc.Name) {
	for _, adj := range x.adjacencies.Adjacents() {
		if adj.Status == table.StatusActive && !adj.Name.Equal(origin) {
			log.Debug(x, "Gossiping DV pull", "neighbor", adj.Name)
			x.ExpressInterest(adj.Name, x.config.InterestResendTime())
		}
	}
}

// OnInterest handles an incoming DV interest
// /<ownRouter>/nlsr/DV/<seqNo>/<neighborRouterWire>.
func (x *Exchange) OnInterest(args ndn.InterestHandlerArgs) {
	iname := args.Interest.Name()
	if len(iname) < 2 {
		return
	}

	neighbor, err := enc.NameFromBytes(iname.At(-1).Val)
	if err != nil {
		log.Warn(x, "Failed to parse DV Interest sender", "name", iname, "err", err)
		return
	}
	seqNo := iname.At(-2).NumberVal()
	log.Debug(x, "Received DV Interest", "neighbor", neighbor, "seq", seqNo)

	// A sequence number ahead of what we have seen means the neighbor's
	// table changed; pull it back so both sides converge.
	if x.isUpdateTableMessage(neighbor, seqNo) {
		log.Debug(x, "DV Interest is an update-table message", "neighbor", neighbor)
		go x.ExpressInterest(neighbor, x.config.InterestResendTime())
	}

	if !x.adjacencies.IsNeighbor(neighbor) {
		// Drop silently; only adjacent routers may pull our table.
		log.Debug(x, "DV Interest from unknown neighbor", "neighbor", neighbor)
		return
	}

	dataName := iname.
		Append(enc.NewVersionComponent(uint64(time.Now().UnixMilli()))).
		Append(enc.NewSegmentComponent(0))

	wire, err := x.db.WireEncode(neighbor)
	if err != nil {
		log.Warn(x, "Failed to encode DV data", "neighbor", neighbor, "err", err)
		return
	}

	cfg := &ndn.DataConfig{
		ContentType: optional.Some(ndn.ContentTypeBlob),
		Freshness:   optional.Some(dvDataFreshness),
	}
	signer := x.security.Signer(dataName)
	data, err := x.engine.Spec().MakeData(dataName, cfg, wire, signer)
	if err != nil {
		log.Warn(x, "Failed to make DV response Data", "err", err)
		return
	}
	if err := args.Reply(data.Wire); err != nil {
		log.Warn(x, "Failed to send DV response Data", "err", err)
		return
	}

	log.Debug(x, "Sent DV data", "name", dataName)
	x.increaseProcessed(neighbor)
}

// insertProcessed upserts the sequence number for a neighbor.
func (x *Exchange) insertProcessed(neighbor enc.Name, seqNo uint64) {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	for i := range x.processed {
		if x.processed[i].neighbor.Equal(neighbor) {
			x.processed[i].seqNo = seqNo
			return
		}
	}
	x.processed = append(x.processed, processedEntry{neighbor: neighbor.Clone(), seqNo: seqNo})
}

// increaseProcessed increments the sequence number for a known
// neighbor after sending it data.
func (x *Exchange) increaseProcessed(neighbor enc.Name) {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	for i := range x.processed {
		if x.processed[i].neighbor.Equal(neighbor) {
			x.processed[i].seqNo++
			return
		}
	}
}

// isUpdateTableMessage reports whether seqNo is strictly greater than
// the last sequence number seen for this neighbor.
func (x *Exchange) isUpdateTableMessage(neighbor enc.Name, seqNo uint64) bool {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	for _, e := range x.processed {
		if e.neighbor.Equal(neighbor) && e.seqNo < seqNo {
			return true
		}
	}
	return false
}

// ProcessedSeqNo returns the recorded sequence number for a neighbor.
func (x *Exchange) ProcessedSeqNo(neighbor enc.Name) (uint64, bool) {
	x.mutex.Lock()
	defer x.mutex.Unlock()

	for _, e := range x.processed {
		if e.neighbor.Equal(neighbor) {
			return e.seqNo, true
		}
	}
	return 0, false
}
