// Package router wires the routing core together: LSDB, sequencing,
// hello protocol, distance-vector exchange, route computation, and FIB
// projection. Components are constructed in dependency order and talk
// through the event bus; cross-component references are names.
package router

import (
	"fmt"
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/log"
	"github.com/named-data/ndnd/std/ndn"
	mgmt "github.com/named-data/ndnd/std/ndn/mgmt_2022"
	"github.com/named-data/ndnd/std/types/optional"

	"github.com/named-data/nlsr/config"
	"github.com/named-data/nlsr/dvx"
	"github.com/named-data/nlsr/events"
	"github.com/named-data/nlsr/hello"
	"github.com/named-data/nlsr/lsa"
	"github.com/named-data/nlsr/lsdb"
	"github.com/named-data/nlsr/nfdc"
	"github.com/named-data/nlsr/route"
	"github.com/named-data/nlsr/seq"
	"github.com/named-data/nlsr/table"
	"github.com/named-data/nlsr/trust"
)

type Router struct {
	// engine this router is attached to
	engine ndn.Engine
	// router configuration
	config *config.Config
	// event bus connecting the subsystems
	bus *events.Bus
	// signing and validation
	security *trust.Security
	// forwarder management thread
	nfdc *nfdc.MgmtThread

	// sequencing manager
	seq *seq.Manager
	// adjacency table
	adjacencies *table.AdjacencyList
	// link-state database
	db *lsdb.Lsdb
	// hello protocol
	hello *hello.Protocol
	// distance-vector exchange
	dvx *dvx.Exchange
	// route computation and projection
	calc *route.Calculator
	// name prefix table
	npt *table.NamePrefixTable
	// forwarding table shadow
	fib *table.Fib

	// channel to stop the router
	stop chan bool
	// timer for the first hello round
	firstHello *time.Timer
	// heartbeat for hello rounds and LSA fetches
	helloBeat *time.Ticker
	// periodic FIB entry refresh
	fibRefresh *time.Ticker
}

func NewRouter(c *config.Config, engine ndn.Engine) (*Router, error) {
	if err := c.Parse(); err != nil {
		return nil, err
	}

	r := &Router{
		engine: engine,
		config: c,
		bus:    events.NewBus(),
	}

	var err error
	if r.security, err = trust.NewSecurity(c, engine); err != nil {
		return nil, err
	}

	r.nfdc = nfdc.NewMgmtThread(engine)
	r.seq = seq.NewManager(c.SeqFileDir, c.Hyperbolic(), c.Midst())
	r.adjacencies = table.NewAdjacencyList(c)
	r.db = lsdb.NewLsdb(c, r.bus, r.seq, r.adjacencies)
	r.npt = table.NewNamePrefixTable()
	r.fib = table.NewFib(c, r.nfdc)
	r.calc = route.NewCalculator(c, r.bus, r.db, r.adjacencies, r.npt, r.fib)
	r.hello = hello.NewProtocol(c, engine, r.bus, r.adjacencies, r.security)
	r.dvx = dvx.NewExchange(c, engine, r.db, r.adjacencies, r.security)

	r.subscribe()
	return r, nil
}

func (r *Router) String() string {
	return "nlsr"
}

// subscribe registers the cross-component event handlers, in the order
// they should run.
func (r *Router) subscribe() {
	r.bus.Subscribe(events.AdjacencyStatusChanged, func(ev events.Event) {
		// Hyperbolic mode recomputes routes directly; link-state and
		// dry-run rebuild the adjacency LSA, which triggers the
		// recomputation in turn.
		if r.config.Hyperbolic() == seq.HyperbolicOn {
			r.calc.ScheduleCalculation()
		} else {
			r.db.ScheduleAdjLsaBuild()
		}

		if ev.Active {
			go r.onNeighborUp(ev.Neighbor)
		}
	})

	lsaHandler := func(ev events.Event) {
		switch ev.Lsa.Type() {
		case lsa.TypeAdjacency, lsa.TypeCoordinate:
			r.calc.ScheduleCalculation()
		case lsa.TypeName, lsa.TypeMidst:
			r.calc.ScheduleProjection()
		}
	}
	r.bus.Subscribe(events.LsaInstalled, lsaHandler)
	r.bus.Subscribe(events.LsaUpdated, lsaHandler)
	r.bus.Subscribe(events.LsaExpired, lsaHandler)
}

// onNeighborUp fetches the new neighbor's view once its adjacency
// becomes ACTIVE.
func (r *Router) onNeighborUp(neighbor enc.Name) {
	r.fetchLsas(neighbor)
	if r.config.Midst() == seq.MidstOn {
		r.dvx.ExpressInterest(neighbor, r.config.InterestResendTime())
	}
}

// Start runs the router until Stop is called.
func (r *Router) Start() error {
	log.Info(r, "Starting NLSR router", "router", r.config.RouterPrefix())
	defer log.Info(r, "Stopped NLSR router")

	r.stop = make(chan bool, 1)

	if err := r.seq.Initiate(); err != nil {
		return err
	}

	r.db.Start()
	defer r.db.Stop()

	go r.nfdc.Start()
	defer r.nfdc.Stop()

	r.createFaces()
	defer r.destroyFaces()

	if err := r.register(); err != nil {
		// Failing to own our prefixes is fatal at startup.
		return fmt.Errorf("prefix registration failed: %w", err)
	}

	r.installOwnLsas()

	r.firstHello = time.NewTimer(r.config.FirstHelloInterval())
	r.helloBeat = time.NewTicker(r.config.HelloInterval())
	r.fibRefresh = time.NewTicker(r.config.FibEntryRefreshTime())
	defer r.firstHello.Stop()
	defer r.helloBeat.Stop()
	defer r.fibRefresh.Stop()

	for {
		select {
		case <-r.firstHello.C:
			r.helloRound()
		case <-r.helloBeat.C:
			r.helloRound()
		case <-r.fibRefresh.C:
			r.fib.Refresh()
		case <-r.stop:
			return nil
		}
	}
}

// Stop the router.
func (r *Router) Stop() {
	r.stop <- true
}

// helloRound probes all neighbors and refreshes the LSAs of the ones
// that are up.
func (r *Router) helloRound() {
	r.hello.SendHellos()
	for _, adj := range r.adjacencies.Adjacents() {
		if adj.Status == table.StatusActive {
			go r.fetchLsas(adj.Name)
		}
	}
}

// installOwnLsas builds and installs the self-originated LSAs for the
// configured routing mode.
func (r *Router) installOwnLsas() {
	r.db.BuildAndInstallOwnNameLsa()
	r.db.BuildAndInstallOwnAdjLsa()
	r.db.BuildAndInstallOwnCoordinateLsa()
	r.db.BuildAndInstallOwnMidstLsa()
}

// register attaches the interest handlers and registers our prefixes
// with the forwarder.
func (r *Router) register() error {
	handlers := map[string]struct {
		prefix  enc.Name
		handler ndn.InterestHandler
	}{
		"hello": {r.config.InfoPrefix(), func(args ndn.InterestHandlerArgs) {
			go r.hello.OnInterest(args)
		}},
		"dv": {r.config.DvPrefix(), func(args ndn.InterestHandlerArgs) {
			go r.dvx.OnInterest(args)
		}},
		"lsa": {r.ownLsaPrefix(), func(args ndn.InterestHandlerArgs) {
			go r.onLsaInterest(args)
		}},
	}

	for which, h := range handlers {
		if err := r.engine.AttachHandler(h.prefix, h.handler); err != nil {
			return fmt.Errorf("failed to attach %s handler: %w", which, err)
		}
		r.nfdc.Exec(nfdc.Cmd{
			Module: "rib",
			Cmd:    "register",
			Args: &mgmt.ControlArgs{
				Name:   h.prefix,
				Cost:   optional.Some(uint64(0)),
				Origin: optional.Some(nfdc.RouteOriginNlsr),
			},
			Retries: -1,
		})
	}

	// LSAs flood over multiple links
	r.fib.SetStrategy(r.config.LsaPrefixName(), config.MulticastStrategy)
	return nil
}

// createFaces creates the faces to all configured neighbors and
// registers the routes needed to talk to them.
func (r *Router) createFaces() {
	for _, n := range r.config.Neighbors {
		faceId, created, err := r.nfdc.CreateFace(n.Uri, n.Mtu)
		if err != nil {
			log.Error(r, "Failed to create face to neighbor", "uri", n.Uri, "err", err)
			continue
		}
		log.Info(r, "Created face to neighbor", "uri", n.Uri, "faceid", faceId, "created", created)

		if adj := r.adjacencies.Get(n.NameN); adj != nil {
			adj.FaceId = faceId
		}

		// Interests towards the neighbor leave through its face
		for _, prefix := range []enc.Name{n.NameN, r.lsaPrefixFor(n.NameN)} {
			r.nfdc.Exec(nfdc.Cmd{
				Module: "rib",
				Cmd:    "register",
				Args: &mgmt.ControlArgs{
					Name:   prefix,
					FaceId: optional.Some(faceId),
					Cost:   optional.Some(uint64(0)),
					Origin: optional.Some(nfdc.RouteOriginNlsr),
				},
				Retries: 3,
			})
		}
	}
}

// destroyFaces tears down the faces we created at startup.
func (r *Router) destroyFaces() {
	for _, n := range r.config.Neighbors {
		adj := r.adjacencies.Get(n.NameN)
		if adj == nil || adj.FaceId == 0 {
			continue
		}
		if err := r.nfdc.DestroyFace(adj.FaceId); err != nil {
			log.Error(r, "Failed to destroy face", "uri", n.Uri, "err", err)
		}
	}
}

// OnFaceDestroyed feeds a forwarder face event into the hello protocol.
func (r *Router) OnFaceDestroyed(faceId uint64) {
	r.hello.OnFaceDestroyed(faceId)
}

func (r *Router) Lsdb() *lsdb.Lsdb {
	return r.db
}

func (r *Router) RoutingTable() *table.RoutingTable {
	return r.calc.RoutingTable()
}
