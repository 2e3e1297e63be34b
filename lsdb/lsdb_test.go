package lsdb_test

import (
	"testing"
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/stretchr/testify/require"

	"github.com/named-data/nlsr/config"
	"github.com/named-data/nlsr/events"
	"github.com/named-data/nlsr/lsa"
	"github.com/named-data/nlsr/lsdb"
	"github.com/named-data/nlsr/seq"
	"github.com/named-data/nlsr/table"
)

func name(t *testing.T, s string) enc.Name {
	t.Helper()
	n, err := enc.NameFromStr(s)
	require.NoError(t, err)
	return n
}

type fixture struct {
	cfg *config.Config
	bus *events.Bus
	sm  *seq.Manager
	al  *table.AdjacencyList
	db  *lsdb.Lsdb

	events []events.Event
}

func makeFixture(t *testing.T, midst string) *fixture {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Site = "/ndn/site"
	cfg.Router = "/routerB"
	cfg.MidstState = midst
	cfg.SeqFileDir = t.TempDir()
	cfg.AdvertisePrefixes = []string{"/B/app"}
	cfg.Neighbors = []config.Neighbor{
		{Name: "/ndn/site/routerA", Uri: "udp4://10.0.0.1:6363", LinkCost: 5},
		{Name: "/ndn/site/routerC", Uri: "udp4://10.0.0.3:6363", LinkCost: 5},
	}
	require.NoError(t, cfg.Parse())

	fx := &fixture{
		cfg: cfg,
		bus: events.NewBus(),
		sm:  seq.NewManager(cfg.SeqFileDir, cfg.Hyperbolic(), cfg.Midst()),
		al:  table.NewAdjacencyList(cfg),
	}
	require.NoError(t, fx.sm.Initiate())

	record := func(ev events.Event) { fx.events = append(fx.events, ev) }
	fx.bus.Subscribe(events.LsaInstalled, record)
	fx.bus.Subscribe(events.LsaUpdated, record)
	fx.bus.Subscribe(events.LsaExpired, record)

	fx.db = lsdb.NewLsdb(cfg, fx.bus, fx.sm, fx.al)
	return fx
}

func header(t *testing.T, origin string, seqNo uint64) lsa.Header {
	t.Helper()
	return lsa.Header{
		OriginRouter: name(t, origin),
		SeqNo:        seqNo,
		ExpireAt:     time.Now().Add(30 * time.Minute),
	}
}

func TestInstallAndLookup(t *testing.T) {
	fx := makeFixture(t, "off")

	l := &lsa.NameLsa{
		Header: header(t, "/ndn/site/routerA", 1),
		Names:  lsa.NewNamePrefixList(name(t, "/A/app")),
	}
	require.True(t, fx.db.Install(l))

	got := fx.db.Lookup(name(t, "/ndn/site/routerA"), lsa.TypeName)
	require.NotNil(t, got)
	require.Equal(t, uint64(1), got.Hdr().SeqNo)

	require.Len(t, fx.events, 1)
	require.Equal(t, events.LsaInstalled, fx.events[0].Kind)
}

func TestStaleInstallDiscarded(t *testing.T) {
	fx := makeFixture(t, "off")

	stored := &lsa.AdjLsa{
		Header: header(t, "/ndn/site/routerX", 5),
		Adjacencies: []lsa.Adjacency{
			{Name: name(t, "/ndn/site/routerY"), Uri: "udp4://u", Cost: 1},
		},
	}
	require.True(t, fx.db.Install(stored))
	fx.events = nil

	// Same sequence, different adjacencies: must be discarded
	dup := &lsa.AdjLsa{
		Header: header(t, "/ndn/site/routerX", 5),
		Adjacencies: []lsa.Adjacency{
			{Name: name(t, "/ndn/site/routerZ"), Uri: "udp4://z", Cost: 9},
		},
	}
	require.False(t, fx.db.Install(dup))

	// Lower sequence: also discarded
	old := &lsa.AdjLsa{Header: header(t, "/ndn/site/routerX", 4)}
	require.False(t, fx.db.Install(old))

	got := fx.db.Lookup(name(t, "/ndn/site/routerX"), lsa.TypeAdjacency).(*lsa.AdjLsa)
	require.True(t, got.IsEqualContent(stored))
	require.Empty(t, fx.events)
}

func TestUpdateEmitsDelta(t *testing.T) {
	fx := makeFixture(t, "on")
	anchor := name(t, "/ndn/site/routerC")

	first := &lsa.MidstLsa{
		Header: header(t, "/ndn/site/routerC", 1),
		List: lsa.NewMidstPrefixList(
			lsa.MidstEntry{Name: name(t, "/C/v"), Distance: 5, Anchor: anchor, SeqNo: 1},
		),
	}
	require.True(t, fx.db.Install(first))
	fx.events = nil

	second := &lsa.MidstLsa{
		Header: header(t, "/ndn/site/routerC", 2),
		List: lsa.NewMidstPrefixList(
			lsa.MidstEntry{Name: name(t, "/C/v"), Distance: 5, Anchor: anchor, SeqNo: 2},
			lsa.MidstEntry{Name: name(t, "/C/w"), Distance: 7, Anchor: anchor, SeqNo: 2},
		),
	}
	require.True(t, fx.db.Install(second))

	require.Len(t, fx.events, 1)
	ev := fx.events[0]
	require.Equal(t, events.LsaUpdated, ev.Kind)
	require.Len(t, ev.NamesAdded, 1)
	require.True(t, ev.NamesAdded[0].Equal(name(t, "/C/w")))
	require.Empty(t, ev.NamesRemoved)
}

func TestWireEncodeAddsLinkCost(t *testing.T) {
	fx := makeFixture(t, "on")

	// Learned from C at distance 5; relaying to A adds A's link cost.
	learned := &lsa.MidstLsa{
		Header: header(t, "/ndn/site/routerC", 1),
		List: lsa.NewMidstPrefixList(
			lsa.MidstEntry{Name: name(t, "/C/v"), Distance: 5, Anchor: name(t, "/ndn/site/routerC"), SeqNo: 1},
		),
	}
	require.True(t, fx.db.Install(learned))

	wire, err := fx.db.WireEncode(name(t, "/ndn/site/routerA"))
	require.NoError(t, err)

	all, err := lsa.ParseAll(wire)
	require.NoError(t, err)
	require.Len(t, all, 1)

	ml := all[0].(*lsa.MidstLsa)
	e, ok := ml.List.Get(name(t, "/C/v"))
	require.True(t, ok)
	require.Equal(t, float64(10), e.Distance)
	require.True(t, e.Anchor.Equal(name(t, "/ndn/site/routerC")))
	require.Equal(t, uint64(1), e.SeqNo)
}

func TestWireEncodeUnknownNeighbor(t *testing.T) {
	fx := makeFixture(t, "on")
	_, err := fx.db.WireEncode(name(t, "/ndn/site/stranger"))
	require.Error(t, err)
}

func TestWireDecodeReturnsOriginSeq(t *testing.T) {
	fx := makeFixture(t, "on")
	origin := name(t, "/ndn/site/routerC")

	l := &lsa.MidstLsa{
		Header: header(t, "/ndn/site/routerC", 3),
		List: lsa.NewMidstPrefixList(
			lsa.MidstEntry{Name: name(t, "/C/v"), Distance: 5, Anchor: origin, SeqNo: 3},
		),
	}

	seqNo, err := fx.db.WireDecode(origin, l.Encode())
	require.NoError(t, err)
	require.Equal(t, uint64(3), seqNo)

	// Re-processing the same sequence is a no-op
	seqNo, err = fx.db.WireDecode(origin, l.Encode())
	require.NoError(t, err)
	require.Equal(t, uint64(0), seqNo)
}

func TestRemoveAndIterate(t *testing.T) {
	fx := makeFixture(t, "off")

	a := &lsa.NameLsa{Header: header(t, "/ndn/site/routerA", 1)}
	c := &lsa.NameLsa{Header: header(t, "/ndn/site/routerC", 1)}
	require.True(t, fx.db.Install(a))
	require.True(t, fx.db.Install(c))

	require.Len(t, fx.db.Iterate(lsa.TypeName), 2)
	require.Empty(t, fx.db.Iterate(lsa.TypeAdjacency))

	fx.db.Remove(name(t, "/ndn/site/routerA"), lsa.TypeName)
	require.Len(t, fx.db.Iterate(lsa.TypeName), 1)
	require.Nil(t, fx.db.Lookup(name(t, "/ndn/site/routerA"), lsa.TypeName))
}

func TestBuildOwnMidstLsa(t *testing.T) {
	fx := makeFixture(t, "on")

	before := fx.sm.MidstSeq()
	fx.db.BuildAndInstallOwnMidstLsa()

	got := fx.db.Lookup(fx.cfg.RouterPrefix(), lsa.TypeMidst)
	require.NotNil(t, got)
	require.Equal(t, before+1, got.Hdr().SeqNo)

	ml := got.(*lsa.MidstLsa)
	e, ok := ml.List.Get(name(t, "/B/app"))
	require.True(t, ok)
	require.Equal(t, float64(0), e.Distance)
	require.True(t, e.Anchor.Equal(fx.cfg.RouterPrefix()))
}

func TestBuildOwnAdjLsaActiveOnly(t *testing.T) {
	fx := makeFixture(t, "off")

	fx.al.Get(name(t, "/ndn/site/routerA")).Status = table.StatusActive
	fx.db.BuildAndInstallOwnAdjLsa()

	got := fx.db.Lookup(fx.cfg.RouterPrefix(), lsa.TypeAdjacency).(*lsa.AdjLsa)
	require.Len(t, got.Adjacencies, 1)
	require.True(t, got.Adjacencies[0].Name.Equal(name(t, "/ndn/site/routerA")))
	require.Equal(t, float64(5), got.Adjacencies[0].Cost)
}

func TestBuildOwnNameLsaSkippedUnderMidst(t *testing.T) {
	fx := makeFixture(t, "on")
	fx.db.BuildAndInstallOwnNameLsa()
	require.Nil(t, fx.db.Lookup(fx.cfg.RouterPrefix(), lsa.TypeName))
}
