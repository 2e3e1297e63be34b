package route_test

import (
	"testing"
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/stretchr/testify/require"

	"github.com/named-data/nlsr/config"
	"github.com/named-data/nlsr/events"
	"github.com/named-data/nlsr/lsa"
	"github.com/named-data/nlsr/lsdb"
	"github.com/named-data/nlsr/nfdc"
	"github.com/named-data/nlsr/route"
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
	cfg  *config.Config
	db   *lsdb.Lsdb
	al   *table.AdjacencyList
	npt  *table.NamePrefixTable
	calc *route.Calculator
}

func makeFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Site = "/ndn/site"
	cfg.Router = "/A"
	cfg.SeqFileDir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, cfg.Parse())

	bus := events.NewBus()
	sm := seq.NewManager(cfg.SeqFileDir, cfg.Hyperbolic(), cfg.Midst())
	require.NoError(t, sm.Initiate())

	al := table.NewAdjacencyList(cfg)
	db := lsdb.NewLsdb(cfg, bus, sm, al)
	npt := table.NewNamePrefixTable()
	fib := table.NewFib(cfg, nfdc.NewMgmtThread(nil))

	return &fixture{
		cfg:  cfg,
		db:   db,
		al:   al,
		npt:  npt,
		calc: route.NewCalculator(cfg, bus, db, al, npt, fib),
	}
}

func (fx *fixture) activate(t *testing.T, neighbor string, faceId uint64) {
	t.Helper()
	adj := fx.al.Get(name(t, neighbor))
	require.NotNil(t, adj)
	adj.Status = table.StatusActive
	adj.FaceId = faceId
}

func adjLsa(t *testing.T, origin string, seqNo uint64, links map[string]float64) *lsa.AdjLsa {
	t.Helper()
	l := &lsa.AdjLsa{
		Header: lsa.Header{
			OriginRouter: name(t, origin),
			SeqNo:        seqNo,
			ExpireAt:     time.Now().Add(30 * time.Minute),
		},
	}
	for to, cost := range links {
		l.Adjacencies = append(l.Adjacencies, lsa.Adjacency{
			Name: name(t, to),
			Uri:  "udp4://" + to,
			Cost: cost,
		})
	}
	return l
}

func TestLinkStateTwoRouters(t *testing.T) {
	fx := makeFixture(t, func(c *config.Config) {
		c.Neighbors = []config.Neighbor{
			{Name: "/ndn/site/B", Uri: "udp4://b", LinkCost: 10},
		}
		c.AdvertisePrefixes = []string{"/A/app"}
	})
	fx.activate(t, "/ndn/site/B", 301)

	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/A", 1, map[string]float64{"/ndn/site/B": 10})))
	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/B", 1, map[string]float64{"/ndn/site/A": 10})))

	bName := &lsa.NameLsa{
		Header: lsa.Header{
			OriginRouter: name(t, "/ndn/site/B"),
			SeqNo:        1,
			ExpireAt:     time.Now().Add(30 * time.Minute),
		},
		Names: lsa.NewNamePrefixList(name(t, "/B/app")),
	}
	require.True(t, fx.db.Install(bName))

	fx.calc.Calculate()

	entry := fx.calc.RoutingTable().Get(name(t, "/ndn/site/B"))
	require.NotNil(t, entry)
	require.Len(t, entry.NextHops, 1)
	require.Equal(t, uint64(301), entry.NextHops[0].FaceId)
	require.Equal(t, float64(10), entry.NextHops[0].Cost)

	npe := fx.npt.Get(name(t, "/B/app"))
	require.NotNil(t, npe)
	require.Len(t, npe.NextHops, 1)
	require.Equal(t, float64(10), npe.NextHops[0].Cost)
}

func TestLinkStateChain(t *testing.T) {
	fx := makeFixture(t, func(c *config.Config) {
		c.Neighbors = []config.Neighbor{
			{Name: "/ndn/site/B", Uri: "udp4://b", LinkCost: 5},
		}
	})
	fx.activate(t, "/ndn/site/B", 301)

	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/A", 1, map[string]float64{"/ndn/site/B": 5})))
	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/B", 1, map[string]float64{
		"/ndn/site/A": 5,
		"/ndn/site/C": 5,
	})))
	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/C", 1, map[string]float64{"/ndn/site/B": 5})))

	fx.calc.Calculate()

	entry := fx.calc.RoutingTable().Get(name(t, "/ndn/site/C"))
	require.NotNil(t, entry)
	require.Len(t, entry.NextHops, 1)
	require.Equal(t, float64(10), entry.NextHops[0].Cost)
	require.True(t, entry.NextHops[0].Neighbor.Equal(name(t, "/ndn/site/B")))
}

func TestLinkStateMultipathTolerance(t *testing.T) {
	fx := makeFixture(t, func(c *config.Config) {
		c.Neighbors = []config.Neighbor{
			{Name: "/ndn/site/B", Uri: "udp4://b", LinkCost: 5},
			{Name: "/ndn/site/C", Uri: "udp4://c", LinkCost: 5},
		}
		c.MaxFacesTolerance = 0.2
	})
	fx.activate(t, "/ndn/site/B", 301)
	fx.activate(t, "/ndn/site/C", 302)

	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/A", 1, map[string]float64{
		"/ndn/site/B": 5,
		"/ndn/site/C": 5,
	})))
	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/B", 1, map[string]float64{
		"/ndn/site/A": 5,
		"/ndn/site/D": 5,
	})))
	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/C", 1, map[string]float64{
		"/ndn/site/A": 5,
		"/ndn/site/D": 6,
	})))
	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/D", 1, map[string]float64{
		"/ndn/site/B": 5,
		"/ndn/site/C": 6,
	})))

	fx.calc.Calculate()

	// best is 10 via B; 11 via C is within 20% tolerance
	entry := fx.calc.RoutingTable().Get(name(t, "/ndn/site/D"))
	require.NotNil(t, entry)
	require.Len(t, entry.NextHops, 2)
	require.Equal(t, float64(10), entry.NextHops[0].Cost)
	require.Equal(t, float64(11), entry.NextHops[1].Cost)
}

func TestLinkStateFaceLimit(t *testing.T) {
	fx := makeFixture(t, func(c *config.Config) {
		c.Neighbors = []config.Neighbor{
			{Name: "/ndn/site/B", Uri: "udp4://b", LinkCost: 5},
			{Name: "/ndn/site/C", Uri: "udp4://c", LinkCost: 5},
		}
		c.MaxFacesTolerance = 1.0
		c.MaxFacesPerPrefix = 1
	})
	fx.activate(t, "/ndn/site/B", 301)
	fx.activate(t, "/ndn/site/C", 302)

	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/A", 1, map[string]float64{
		"/ndn/site/B": 5,
		"/ndn/site/C": 5,
	})))
	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/B", 1, map[string]float64{
		"/ndn/site/A": 5,
		"/ndn/site/D": 5,
	})))
	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/C", 1, map[string]float64{
		"/ndn/site/A": 5,
		"/ndn/site/D": 6,
	})))

	fx.calc.Calculate()

	entry := fx.calc.RoutingTable().Get(name(t, "/ndn/site/D"))
	require.NotNil(t, entry)
	require.Len(t, entry.NextHops, 1)
	require.Equal(t, float64(10), entry.NextHops[0].Cost)
}

func TestLinkStateZeroCostDirect(t *testing.T) {
	fx := makeFixture(t, func(c *config.Config) {
		c.Neighbors = []config.Neighbor{
			{Name: "/ndn/site/B", Uri: "udp4://b", LinkCost: 0},
		}
	})
	fx.activate(t, "/ndn/site/B", 301)

	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/A", 1, map[string]float64{"/ndn/site/B": 0})))

	fx.calc.Calculate()

	entry := fx.calc.RoutingTable().Get(name(t, "/ndn/site/B"))
	require.NotNil(t, entry)
	require.Len(t, entry.NextHops, 1)
	require.Equal(t, float64(0), entry.NextHops[0].Cost)
}

func TestProjectionMergesMidstAnchors(t *testing.T) {
	fx := makeFixture(t, func(c *config.Config) {
		c.Neighbors = []config.Neighbor{
			{Name: "/ndn/site/B", Uri: "udp4://b", LinkCost: 5},
		}
		c.MidstState = "on"
	})
	fx.activate(t, "/ndn/site/B", 301)

	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/A", 1, map[string]float64{"/ndn/site/B": 5})))
	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/B", 1, map[string]float64{
		"/ndn/site/A": 5,
		"/ndn/site/C": 5,
	})))
	require.True(t, fx.db.Install(adjLsa(t, "/ndn/site/C", 1, map[string]float64{"/ndn/site/B": 5})))

	// B's MIDST view carries a prefix anchored at C
	ml := &lsa.MidstLsa{
		Header: lsa.Header{
			OriginRouter: name(t, "/ndn/site/B"),
			SeqNo:        1,
			ExpireAt:     time.Now().Add(30 * time.Minute),
		},
		List: lsa.NewMidstPrefixList(
			lsa.MidstEntry{Name: name(t, "/C/v"), Distance: 5, Anchor: name(t, "/ndn/site/C"), SeqNo: 1},
		),
	}
	require.True(t, fx.db.Install(ml))

	fx.calc.Calculate()

	// /C/v resolves to the route towards its anchor C
	npe := fx.npt.Get(name(t, "/C/v"))
	require.NotNil(t, npe)
	require.Len(t, npe.NextHops, 1)
	require.Equal(t, float64(10), npe.NextHops[0].Cost)
}

func TestHyperbolicRanking(t *testing.T) {
	fx := makeFixture(t, func(c *config.Config) {
		c.Neighbors = []config.Neighbor{
			{Name: "/ndn/site/B", Uri: "udp4://b", LinkCost: 5},
			{Name: "/ndn/site/D", Uri: "udp4://d", LinkCost: 5},
		}
		c.HyperbolicState = "on"
		c.HyperbolicRadius = 5
		c.HyperbolicAngles = []float64{0}
	})
	fx.activate(t, "/ndn/site/B", 301)
	fx.activate(t, "/ndn/site/D", 302)

	coord := func(origin string, angle float64) *lsa.CoordinateLsa {
		return &lsa.CoordinateLsa{
			Header: lsa.Header{
				OriginRouter: name(t, origin),
				SeqNo:        1,
				ExpireAt:     time.Now().Add(30 * time.Minute),
			},
			Radius: 5,
			Angles: []float64{angle},
		}
	}
	require.True(t, fx.db.Install(coord("/ndn/site/B", 1.0)))
	require.True(t, fx.db.Install(coord("/ndn/site/D", 3.0)))
	require.True(t, fx.db.Install(coord("/ndn/site/C", 1.2)))

	fx.calc.Calculate()

	// B is angularly much closer to C than D is
	entry := fx.calc.RoutingTable().Get(name(t, "/ndn/site/C"))
	require.NotNil(t, entry)
	require.Len(t, entry.NextHops, 2)
	require.True(t, entry.NextHops[0].Neighbor.Equal(name(t, "/ndn/site/B")))
	require.Less(t, entry.NextHops[0].Cost, entry.NextHops[1].Cost)
}
