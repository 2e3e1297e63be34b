package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/named-data/nlsr/config"
	"github.com/named-data/nlsr/seq"
)

func valid() *config.Config {
	c := config.DefaultConfig()
	c.Site = "/ndn/site"
	c.Router = "/routerA"
	return c
}

func TestParseComputesPrefixes(t *testing.T) {
	c := valid()
	require.NoError(t, c.Parse())

	require.Equal(t, "/ndn/site/routerA", c.RouterPrefix().String())
	require.Equal(t, "/ndn/site/routerA/nlsr/DV", c.DvPrefix().String())
	require.Equal(t, "/ndn/site/routerA/nlsr/INFO", c.InfoPrefix().String())
	require.Equal(t, "/ndn/NLSR/LSA", c.LsaPrefixName().String())
}

func TestParseRejectsMissingIdentity(t *testing.T) {
	c := config.DefaultConfig()
	require.Error(t, c.Parse())
}

func TestParseRejectsBadModes(t *testing.T) {
	c := valid()
	c.HyperbolicState = "sometimes"
	require.Error(t, c.Parse())

	c = valid()
	c.MidstState = "maybe"
	require.Error(t, c.Parse())

	c = valid()
	c.HyperbolicState = "on"
	// missing coordinates
	require.Error(t, c.Parse())
}

func TestModeMapping(t *testing.T) {
	c := valid()
	c.HyperbolicState = "dry-run"
	c.HyperbolicAngles = []float64{1}
	c.MidstState = "on"
	require.NoError(t, c.Parse())

	require.Equal(t, seq.HyperbolicDryRun, c.Hyperbolic())
	require.Equal(t, seq.MidstOn, c.Midst())
}

func TestIntervals(t *testing.T) {
	c := valid()
	c.LsaRefreshTime_s = 1800
	require.NoError(t, c.Parse())

	require.Equal(t, 30*time.Minute, c.LsaRefreshTime())
	require.Equal(t, time.Hour, c.FibEntryRefreshTime())
}

func TestParseNeighbors(t *testing.T) {
	c := valid()
	c.Neighbors = []config.Neighbor{
		{Name: "/ndn/site/routerB", Uri: "udp4://10.0.0.2:6363", LinkCost: 25},
	}
	require.NoError(t, c.Parse())
	require.Equal(t, "/ndn/site/routerB", c.Neighbors[0].NameN.String())

	c = valid()
	c.Neighbors = []config.Neighbor{{Name: "/ndn/site/routerB"}}
	require.Error(t, c.Parse()) // no face URI
}
