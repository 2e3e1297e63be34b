// Package events is a small synchronous event bus connecting the router
// subsystems. Subscribers are registered at startup and dispatched in
// insertion order.
package events

import (
	enc "github.com/named-data/ndnd/std/encoding"

	"github.com/named-data/nlsr/lsa"
)

type Kind int

const (
	LsaInstalled Kind = iota
	LsaUpdated
	LsaExpired
	AdjacencyStatusChanged
	RoutingRecomputed
)

// Event is the payload delivered to subscribers. Cross-component
// references are carried as names, never as pointers into sibling state.
type Event struct {
	Kind Kind

	// LSA events
	Lsa          lsa.Lsa
	NamesAdded   []enc.Name
	NamesRemoved []enc.Name

	// AdjacencyStatusChanged
	Neighbor enc.Name
	Active   bool
}

type Bus struct {
	subs map[Kind][]func(Event)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Kind][]func(Event))}
}

func (b *Bus) Subscribe(kind Kind, fn func(Event)) {
	b.subs[kind] = append(b.subs[kind], fn)
}

func (b *Bus) Emit(ev Event) {
	for _, fn := range b.subs[ev.Kind] {
		fn(ev)
	}
}
