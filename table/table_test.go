package table_test

import (
	"testing"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/stretchr/testify/require"

	"github.com/named-data/nlsr/config"
	"github.com/named-data/nlsr/nfdc"
	"github.com/named-data/nlsr/table"
)

func name(t *testing.T, s string) enc.Name {
	t.Helper()
	n, err := enc.NameFromStr(s)
	require.NoError(t, err)
	return n
}

func TestNextHopListSortAndTrim(t *testing.T) {
	nhl := table.NextHopList{
		{Neighbor: name(t, "/b"), FaceId: 2, Cost: 20},
		{Neighbor: name(t, "/a"), FaceId: 1, Cost: 10},
		{Neighbor: name(t, "/c"), FaceId: 3, Cost: 15},
	}
	nhl.Sort()

	require.Equal(t, float64(10), nhl[0].Cost)
	require.Equal(t, float64(15), nhl[1].Cost)
	require.Equal(t, float64(20), nhl[2].Cost)

	trimmed := nhl.Trim(2)
	require.Len(t, trimmed, 2)
	require.Equal(t, float64(10), trimmed[0].Cost)

	// zero means unlimited
	require.Len(t, nhl.Trim(0), 3)
}

func TestRoutingTableSetKeepsCostOrder(t *testing.T) {
	rt := table.NewRoutingTable()
	dest := name(t, "/ndn/site/B")

	rt.Set(dest, table.NextHopList{
		{Neighbor: name(t, "/n2"), FaceId: 2, Cost: 7},
		{Neighbor: name(t, "/n1"), FaceId: 1, Cost: 3},
	})

	entry := rt.Get(dest)
	require.NotNil(t, entry)
	require.Equal(t, float64(3), entry.NextHops[0].Cost)
	require.Equal(t, float64(7), entry.NextHops[1].Cost)
	require.Equal(t, 1, rt.Size())
}

func TestNamePrefixTableMergesAdvertisers(t *testing.T) {
	npt := table.NewNamePrefixTable()
	prefix := name(t, "/shared/app")

	npt.Add(prefix, table.NextHopList{{Neighbor: name(t, "/n1"), FaceId: 1, Cost: 20}})
	npt.Add(prefix, table.NextHopList{{Neighbor: name(t, "/n2"), FaceId: 2, Cost: 10}})

	entry := npt.Get(prefix)
	require.NotNil(t, entry)
	require.Len(t, entry.NextHops, 2)
	require.Equal(t, float64(10), entry.NextHops[0].Cost)
	require.Equal(t, uint64(2), entry.NextHops[0].FaceId)

	npt.Reset()
	require.Equal(t, 0, npt.Size())
}

func TestFibUpdateAndSweep(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Site = "/ndn/site"
	cfg.Router = "/A"
	require.NoError(t, cfg.Parse())

	fib := table.NewFib(cfg, nfdc.NewMgmtThread(nil))
	prefix := name(t, "/B/app")

	fib.BeginUpdate()
	// duplicate faces collapse to the cheapest cost
	installed := fib.Update(prefix, table.NextHopList{
		{Neighbor: name(t, "/n1"), FaceId: 1, Cost: 15},
		{Neighbor: name(t, "/n1"), FaceId: 1, Cost: 10},
		{Neighbor: name(t, "/n2"), FaceId: 2, Cost: 20},
	})
	require.True(t, installed)
	require.Equal(t, 1, fib.Size())

	// hops with no face or infinite cost never install
	fib.BeginUpdate()
	installed = fib.Update(name(t, "/C/app"), table.NextHopList{
		{Neighbor: name(t, "/n3"), FaceId: 0, Cost: 5},
		{Neighbor: name(t, "/n4"), FaceId: 4, Cost: table.CostInfinity},
	})
	require.False(t, installed)

	// the projection that skipped /B/app withdraws it on sweep
	fib.Sweep()
	require.Equal(t, 0, fib.Size())
}

func TestAdjacencyListFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Site = "/ndn/site"
	cfg.Router = "/A"
	cfg.InterestRetryNumber = 4
	cfg.Neighbors = []config.Neighbor{
		{Name: "/ndn/site/B", Uri: "udp4://b", LinkCost: 10},
		{Name: "/ndn/site/C", Uri: "udp4://c", LinkCost: 20},
	}
	require.NoError(t, cfg.Parse())

	al := table.NewAdjacencyList(cfg)
	require.Equal(t, 2, al.Size())
	require.Equal(t, 0, al.ActiveCount())
	require.True(t, al.IsNeighbor(name(t, "/ndn/site/B")))
	require.False(t, al.IsNeighbor(name(t, "/ndn/site/Z")))

	adj := al.Get(name(t, "/ndn/site/B"))
	require.Equal(t, table.StatusInactive, adj.Status)
	require.Equal(t, uint32(4), adj.InterestTimedOutNo)

	adj.FaceId = 9
	require.Equal(t, adj, al.FindByFaceId(9))
	require.Nil(t, al.FindByFaceId(0))
}

func TestHyperbolicZeroesLinkCosts(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Site = "/ndn/site"
	cfg.Router = "/A"
	cfg.HyperbolicState = "on"
	cfg.HyperbolicAngles = []float64{1.0}
	cfg.Neighbors = []config.Neighbor{
		{Name: "/ndn/site/B", Uri: "udp4://b", LinkCost: 10},
	}
	require.NoError(t, cfg.Parse())

	al := table.NewAdjacencyList(cfg)
	require.Equal(t, float64(0), al.Get(name(t, "/ndn/site/B")).LinkCost)
}
