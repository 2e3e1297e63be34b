// Package hello probes neighbors for liveness and drives adjacency
// status transitions.
package hello

import (
	"sync"
	"time"

	enc "github.com/named-data/ndnd/std/encoding"
	"github.com/named-data/ndnd/std/log"
	"github.com/named-data/ndnd/std/ndn"
	"github.com/named-data/ndnd/std/types/optional"

	"github.com/named-data/nlsr/config"
	"github.com/named-data/nlsr/events"
	"github.com/named-data/nlsr/table"
	"github.com/named-data/nlsr/trust"
)

// Freshness of hello response data.
const helloDataFreshness = 10 * time.Second

var helloContent = []byte("info")

type Protocol struct {
	mutex sync.Mutex

	config      *config.Config
	engine      ndn.Engine
	bus         *events.Bus
	adjacencies *table.AdjacencyList
	security    *trust.Security
}

func NewProtocol(c *config.Config, engine ndn.Engine, bus *events.Bus,
	al *table.AdjacencyList, security *trust.Security) *Protocol {
	return &Protocol{
		config:      c,
		engine:      engine,
		bus:         bus,
		adjacencies: al,
		security:    security,
	}
}

func (h *Protocol) String() string {
	return "hello"
}

// SendHellos expresses a hello interest to every configured neighbor.
func (h *Protocol) SendHellos() {
	for _, adj := range h.adjacencies.Adjacents() {
		h.expressInterest(adj.Name)
	}
}

// expressInterest sends /<neighbor>/nlsr/INFO/<ownRouterWire>.
func (h *Protocol) expressInterest(neighbor enc.Name) {
	name := neighbor.
		Append(enc.NewGenericComponent("nlsr")).
		Append(enc.NewGenericComponent("INFO")).
		Append(enc.NewGenericBytesComponent(h.config.RouterPrefix().Bytes()))

	cfg := &ndn.InterestConfig{
		MustBeFresh: true,
		Lifetime:    optional.Some(h.config.InterestResendTime()),
	}
	interest, err := h.engine.Spec().MakeInterest(name, cfg, nil, nil)
	if err != nil {
		log.Error(h, "Failed to make hello Interest", "name", name, "err", err)
		return
	}

	log.Trace(h, "Expressing hello Interest", "name", name)
	err = h.engine.Express(interest, func(args ndn.ExpressCallbackArgs) {
		switch args.Result {
		case ndn.InterestResultData:
			h.security.Validate(args.Data, args.SigCovered, func(valid bool, err error) {
				if !valid {
					log.Warn(h, "Hello data validation failed", "neighbor", neighbor, "err", err)
					return
				}
				h.onContentValidated(neighbor)
			})
		default:
			// NACK is treated the same as a timeout
			h.onTimeout(neighbor)
		}
	})
	if err != nil {
		log.Error(h, "Failed to express hello Interest", "name", name, "err", err)
	}
}

func (h *Protocol) onContentValidated(neighbor enc.Name) {
	h.mutex.Lock()
	adj := h.adjacencies.Get(neighbor)
	if adj == nil {
		h.mutex.Unlock()
		return
	}

	wasInactive := adj.Status == table.StatusInactive
	adj.Status = table.StatusActive
	adj.InterestTimedOutNo = 0
	h.mutex.Unlock()

	if wasInactive {
		log.Info(h, "Neighbor is now ACTIVE", "neighbor", neighbor)
		h.bus.Emit(events.Event{
			Kind:     events.AdjacencyStatusChanged,
			Neighbor: neighbor,
			Active:   true,
		})
	}
}

func (h *Protocol) onTimeout(neighbor enc.Name) {
	h.mutex.Lock()
	adj := h.adjacencies.Get(neighbor)
	if adj == nil {
		h.mutex.Unlock()
		return
	}

	adj.InterestTimedOutNo++
	log.Debug(h, "Hello Interest timed out", "neighbor", neighbor, "timeouts", adj.InterestTimedOutNo)

	if adj.InterestTimedOutNo < h.config.InterestRetryNumber {
		h.mutex.Unlock()
		h.expressInterest(neighbor)
		return
	}

	wasActive := adj.Status == table.StatusActive
	adj.Status = table.StatusInactive
	h.mutex.Unlock()

	if wasActive {
		log.Info(h, "Neighbor is now INACTIVE", "neighbor", neighbor)
		h.bus.Emit(events.Event{
			Kind:     events.AdjacencyStatusChanged,
			Neighbor: neighbor,
			Active:   false,
		})
	}
}

// OnInterest handles an incoming hello interest
// /<ownRouter>/nlsr/INFO/<neighborRouterWire>.
func (h *Protocol) OnInterest(args ndn.InterestHandlerArgs) {
	iname := args.Interest.Name()
	neighbor, err := enc.NameFromBytes(iname.At(-1).Val)
	if err != nil {
		log.Warn(h, "Failed to parse hello Interest sender", "name", iname, "err", err)
		return
	}

	adj := h.adjacencies.Get(neighbor)
	if adj == nil {
		log.Debug(h, "Hello Interest from unknown neighbor", "neighbor", neighbor)
		return
	}

	cfg := &ndn.DataConfig{
		ContentType: optional.Some(ndn.ContentTypeBlob),
		Freshness:   optional.Some(helloDataFreshness),
	}
	signer := h.security.Signer(iname)
	data, err := h.engine.Spec().MakeData(iname, cfg, enc.Wire{helloContent}, signer)
	if err != nil {
		log.Warn(h, "Failed to make hello response Data", "err", err)
		return
	}
	args.Reply(data.Wire)

	// Probe back so both sides converge when a link comes up
	if adj.Status == table.StatusInactive {
		go h.expressInterest(neighbor)
	}
}

// OnFaceDestroyed handles a face event from the forwarder: the
// adjacency goes INACTIVE immediately, without waiting for hello
// timeouts.
func (h *Protocol) OnFaceDestroyed(faceId uint64) {
	h.mutex.Lock()
	adj := h.adjacencies.FindByFaceId(faceId)
	if adj == nil {
		h.mutex.Unlock()
		return
	}

	adj.FaceId = 0
	wasActive := adj.Status == table.StatusActive
	if wasActive {
		adj.Status = table.StatusInactive
		adj.InterestTimedOutNo = h.config.InterestRetryNumber
	}
	neighbor := adj.Name
	h.mutex.Unlock()

	if wasActive {
		log.Info(h, "Face destroyed, neighbor is now INACTIVE", "neighbor", neighbor, "faceid", faceId)
		h.bus.Emit(events.Event{
			Kind:     events.AdjacencyStatusChanged,
			Neighbor: neighbor,
			Active:   false,
		})
	}
}
