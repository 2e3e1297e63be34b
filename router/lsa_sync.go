package router

import (
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/log"
	"github.com/named-data/ndnd/std/ndn"
	"github.com/named-data/ndnd/std/types/optional"

	"github.com/named-data/nlsr/lsa"
	"github.com/named-data/nlsr/seq"
)

// Freshness of LSA response data.
const lsaDataFreshness = 10 * time.Second

// ownLsaPrefix is the namespace this router serves its LSAs under:
// /<lsaPrefix>/<ownRouter>.
func (r *Router) ownLsaPrefix() enc.Name {
	return r.lsaPrefixFor(r.config.RouterPrefix())
}

func (r *Router) lsaPrefixFor(router enc.Name) enc.Name {
	return r.config.LsaPrefixName().Append(router...)
}

// onLsaInterest serves this router's own LSAs. Interest names are
// /<lsaPrefix>/<ownRouter>/<TYPE>[/<seqNo>]; an interest without a
// sequence number fetches the latest.
func (r *Router) onLsaInterest(args ndn.InterestHandlerArgs) {
	iname := args.Interest.Name()
	prefixLen := len(r.ownLsaPrefix())
	if len(iname) < prefixLen+1 {
		log.Debug(r, "Invalid LSA Interest", "name", iname)
		return
	}

	var typ lsa.Type
	switch iname[prefixLen].String() {
	case lsa.TypeName.String():
		typ = lsa.TypeName
	case lsa.TypeAdjacency.String():
		typ = lsa.TypeAdjacency
	case lsa.TypeCoordinate.String():
		typ = lsa.TypeCoordinate
	case lsa.TypeMidst.String():
		typ = lsa.TypeMidst
	default:
		log.Debug(r, "LSA Interest for unknown type", "name", iname)
		return
	}

	l := r.db.Lookup(r.config.RouterPrefix(), typ)
	if l == nil {
		return
	}

	// A specific stale sequence number cannot be served anymore, and a
	// newer one does not exist yet
	if len(iname) > prefixLen+1 {
		if want := iname[prefixLen+1].NumberVal(); want != l.Hdr().SeqNo {
			return
		}
	}

	dataName := r.ownLsaPrefix().
		Append(enc.NewGenericComponent(typ.String())).
		Append(enc.NewNumberComponent(enc.TypeGenericNameComponent, l.Hdr().SeqNo)).
		Append(enc.NewVersionComponent(uint64(time.Now().UnixMilli())))

	cfg := &ndn.DataConfig{
		ContentType: optional.Some(ndn.ContentTypeBlob),
		Freshness:   optional.Some(lsaDataFreshness),
	}
	data, err := r.engine.Spec().MakeData(dataName, cfg, l.Encode(), r.security.Signer(dataName))
	if err != nil {
		log.Warn(r, "Failed to make LSA response Data", "err", err)
		return
	}
	args.Reply(data.Wire)
}

// fetchLsas pulls the LSAs of router that are relevant for the
// configured routing mode.
func (r *Router) fetchLsas(router enc.Name) {
	if r.config.Midst() == seq.MidstOff {
		r.fetchLsa(router, lsa.TypeName)
	}
	if r.config.Hyperbolic() != seq.HyperbolicOn {
		r.fetchLsa(router, lsa.TypeAdjacency)
	}
	if r.config.Hyperbolic() != seq.HyperbolicOff {
		r.fetchLsa(router, lsa.TypeCoordinate)
	}
}

func (r *Router) fetchLsa(router enc.Name, typ lsa.Type) {
	name := r.lsaPrefixFor(router).Append(enc.NewGenericComponent(typ.String()))

	cfg := &ndn.InterestConfig{
		MustBeFresh: true,
		CanBePrefix: true,
		Lifetime:    optional.Some(r.config.InterestResendTime()),
	}
	interest, err := r.engine.Spec().MakeInterest(name, cfg, nil, nil)
	if err != nil {
		log.Error(r, "Failed to make LSA Interest", "name", name, "err", err)
		return
	}

	err = r.engine.Express(interest, func(args ndn.ExpressCallbackArgs) {
		if args.Result != ndn.InterestResultData {
			log.Debug(r, "LSA Interest yielded no data", "name", name, "result", args.Result)
			return
		}
		r.security.Validate(args.Data, args.SigCovered, func(valid bool, err error) {
			if !valid {
				log.Warn(r, "LSA data validation failed", "name", args.Data.Name(), "err", err)
				return
			}
			r.onLsaData(args.Data)
		})
	})
	if err != nil {
		log.Error(r, "Failed to express LSA Interest", "name", name, "err", err)
	}
}

func (r *Router) onLsaData(data ndn.Data) {
	l, err := lsa.Parse(data.Content())
	if err != nil {
		log.Warn(r, "Failed to decode LSA", "name", data.Name(), "err", err)
		return
	}
	if r.db.Install(l) && l.Type() == lsa.TypeAdjacency {
		go r.discoverFrom(l.(*lsa.AdjLsa))
	}
}

// discoverFrom walks a freshly learned adjacency LSA and fetches the
// LSAs of routers this view does not cover yet.
func (r *Router) discoverFrom(l *lsa.AdjLsa) {
	for _, adj := range l.Adjacencies {
		if adj.Name.Equal(r.config.RouterPrefix()) {
			continue
		}
		if r.db.Lookup(adj.Name, lsa.TypeAdjacency) == nil {
			r.fetchLsas(adj.Name)
		}
	}
}
