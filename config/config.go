package config

import (
	"fmt"
	"time"

	enc "github.com/named-data/ndnd/std/encoding"

	"github.com/named-data/nlsr/seq"
)

// Strategy to request for the LSA prefix.
var MulticastStrategy = enc.LOCALHOST.
	Append(enc.NewGenericComponent("nfd")).
	Append(enc.NewGenericComponent("strategy")).
	Append(enc.NewGenericComponent("multicast"))

type Config struct {
	// Site is the network site this router belongs to.
	Site string `json:"site"`
	// Router is the router's own name under the site.
	Router string `json:"router"`
	// LsaPrefix is the prefix LSAs are served under.
	LsaPrefix string `json:"lsa_prefix"`

	// Lifetime of self-originated LSAs; refreshed at this interval.
	LsaRefreshTime_s uint64 `json:"lsa_refresh_time"`
	// Delay before the first hello round.
	FirstHelloInterval_s uint64 `json:"first_hello_interval"`
	// Interval between periodic hello rounds.
	HelloInterval_s uint64 `json:"hello_interval"`
	// Consecutive hello timeouts before a neighbor goes INACTIVE.
	InterestRetryNumber uint32 `json:"hello_retries"`
	// Lifetime of hello, LSA and DV interests.
	InterestResendTime_s uint64 `json:"hello_timeout"`
	// Debounce interval for routing table calculation.
	RoutingCalcInterval_s uint64 `json:"routing_calc_interval"`

	// Maximum next-hop faces installed per prefix.
	MaxFacesPerPrefix int `json:"max_faces_per_prefix"`
	// Extra cost fraction tolerated when selecting multipath next hops.
	MaxFacesTolerance float64 `json:"max_faces_tolerance"`

	// Hyperbolic routing state: off | dry-run | on.
	HyperbolicState string `json:"hyperbolic_state"`
	// Own hyperbolic coordinates.
	HyperbolicRadius float64   `json:"hyperbolic_radius"`
	HyperbolicAngles []float64 `json:"hyperbolic_angles"`

	// MIDST distance-vector state: off | on.
	MidstState string `json:"midst_state"`

	// Directory holding the sequence number file.
	SeqFileDir string `json:"state_dir"`

	// URI specifying KeyChain location, or "insecure".
	KeyChainUri string `json:"keychain"`
	// Path to the compiled trust schema.
	TrustSchema string `json:"trust_schema"`
	// List of trust anchor full names.
	TrustAnchors []string `json:"trust_anchors"`

	// Application prefixes this router advertises.
	AdvertisePrefixes []string `json:"advertise"`

	// List of configured neighbors.
	Neighbors []Neighbor `json:"neighbors"`

	// Parsed router prefix /<site>/<router>
	routerPfxN enc.Name
	// Parsed LSA prefix
	lsaPfxN enc.Name
	// DV interest prefix /<router>/nlsr/DV
	dvPfxN enc.Name
	// Hello interest prefix /<router>/nlsr/INFO
	infoPfxN enc.Name
	// Parsed trust anchor names
	trustAnchorsN []enc.Name
	// Parsed advertised prefixes
	advertiseN []enc.Name
}

type Neighbor struct {
	// Neighbor router prefix, e.g. /ndn/site/routerB.
	Name string `json:"name"`
	// Remote URI of the neighbor face.
	Uri string `json:"uri"`
	// Cost of the link to the neighbor.
	LinkCost float64 `json:"link_cost"`
	// MTU of the link face.
	Mtu uint64 `json:"mtu"`

	// Parsed neighbor name
	NameN enc.Name `json:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Site:                  "", // invalid
		Router:                "", // invalid
		LsaPrefix:             "/ndn/NLSR/LSA",
		LsaRefreshTime_s:      1800,
		FirstHelloInterval_s:  10,
		HelloInterval_s:       60,
		InterestRetryNumber:   3,
		InterestResendTime_s:  5,
		RoutingCalcInterval_s: 15,
		MaxFacesPerPrefix:     0, // unlimited
		HyperbolicState:       "off",
		MidstState:            "off",
		KeyChainUri:           "insecure",
	}
}

func (c *Config) Parse() (err error) {
	if c.Site == "" || c.Router == "" {
		return fmt.Errorf("site and router must be set")
	}

	siteN, err := enc.NameFromStr(c.Site)
	if err != nil {
		return fmt.Errorf("invalid site name: %w", err)
	}
	routerN, err := enc.NameFromStr(c.Router)
	if err != nil {
		return fmt.Errorf("invalid router name: %w", err)
	}
	c.routerPfxN = siteN.Append(routerN...)

	c.lsaPfxN, err = enc.NameFromStr(c.LsaPrefix)
	if err != nil {
		return fmt.Errorf("invalid LSA prefix: %w", err)
	}

	switch c.HyperbolicState {
	case "off", "dry-run", "on":
	default:
		return fmt.Errorf("hyperbolic_state must be off, dry-run or on")
	}
	switch c.MidstState {
	case "off", "on":
	default:
		return fmt.Errorf("midst_state must be off or on")
	}

	if c.HyperbolicState != "off" && len(c.HyperbolicAngles) == 0 {
		return fmt.Errorf("hyperbolic routing requires hyperbolic_angles")
	}

	if c.LsaRefreshTime() < 10*time.Second {
		return fmt.Errorf("lsa_refresh_time must be at least 10 seconds")
	}
	if c.InterestResendTime_s == 0 {
		return fmt.Errorf("hello_timeout must be positive")
	}
	if c.MaxFacesTolerance < 0 {
		return fmt.Errorf("max_faces_tolerance must be non-negative")
	}

	c.dvPfxN = c.routerPfxN.
		Append(enc.NewGenericComponent("nlsr")).
		Append(enc.NewGenericComponent("DV"))
	c.infoPfxN = c.routerPfxN.
		Append(enc.NewGenericComponent("nlsr")).
		Append(enc.NewGenericComponent("INFO"))

	c.trustAnchorsN = make([]enc.Name, 0, len(c.TrustAnchors))
	for _, anchor := range c.TrustAnchors {
		name, err := enc.NameFromStr(anchor)
		if err != nil {
			return fmt.Errorf("invalid trust anchor: %w", err)
		}
		c.trustAnchorsN = append(c.trustAnchorsN, name)
	}

	c.advertiseN = make([]enc.Name, 0, len(c.AdvertisePrefixes))
	for _, prefix := range c.AdvertisePrefixes {
		name, err := enc.NameFromStr(prefix)
		if err != nil {
			return fmt.Errorf("invalid advertised prefix: %w", err)
		}
		c.advertiseN = append(c.advertiseN, name)
	}

	for i := range c.Neighbors {
		n := &c.Neighbors[i]
		if n.NameN, err = enc.NameFromStr(n.Name); err != nil {
			return fmt.Errorf("invalid neighbor name: %w", err)
		}
		if n.Uri == "" {
			return fmt.Errorf("neighbor %s has no face URI", n.Name)
		}
		if n.LinkCost < 0 {
			return fmt.Errorf("neighbor %s has negative link cost", n.Name)
		}
		// Direct neighbor costs are meaningless under hyperbolic routing.
		if c.HyperbolicState == "on" {
			n.LinkCost = 0
		}
	}

	return nil
}

func (c *Config) RouterPrefix() enc.Name {
	return c.routerPfxN
}

func (c *Config) LsaPrefixName() enc.Name {
	return c.lsaPfxN
}

func (c *Config) DvPrefix() enc.Name {
	return c.dvPfxN
}

func (c *Config) InfoPrefix() enc.Name {
	return c.infoPfxN
}

func (c *Config) TrustAnchorNames() []enc.Name {
	return c.trustAnchorsN
}

func (c *Config) AdvertisedPrefixes() []enc.Name {
	return c.advertiseN
}

func (c *Config) LsaRefreshTime() time.Duration {
	return time.Duration(c.LsaRefreshTime_s) * time.Second
}

func (c *Config) FirstHelloInterval() time.Duration {
	return time.Duration(c.FirstHelloInterval_s) * time.Second
}

func (c *Config) HelloInterval() time.Duration {
	return time.Duration(c.HelloInterval_s) * time.Second
}

func (c *Config) InterestResendTime() time.Duration {
	return time.Duration(c.InterestResendTime_s) * time.Second
}

func (c *Config) RoutingCalcInterval() time.Duration {
	return time.Duration(c.RoutingCalcInterval_s) * time.Second
}

func (c *Config) FibEntryRefreshTime() time.Duration {
	return 2 * c.LsaRefreshTime()
}

func (c *Config) Hyperbolic() seq.HyperbolicState {
	switch c.HyperbolicState {
	case "on":
		return seq.HyperbolicOn
	case "dry-run":
		return seq.HyperbolicDryRun
	default:
		return seq.HyperbolicOff
	}
}

func (c *Config) Midst() seq.MidstState {
	if c.MidstState == "on" {
		return seq.MidstOn
	}
	return seq.MidstOff
}
