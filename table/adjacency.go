package table

import (
	enc "github.com/named-data/ndnd/std/encoding"

	"github.com/named-data/nlsr/config"
)

type Status int

const (
	StatusInactive Status = iota
	StatusActive
)

func (s Status) String() string {
	if s == StatusActive {
		return "ACTIVE"
	}
	return "INACTIVE"
}

// Adjacent is one configured neighbor and its liveness state.
type Adjacent struct {
	Name     enc.Name
	Uri      string
	LinkCost float64
	FaceId   uint64
	Status   Status
	// consecutive hello interest timeouts
	InterestTimedOutNo uint32
}

// AdjacencyList tracks all configured neighbors. Entries are created at
// startup from the configuration and mutated by the hello protocol and
// the face event stream.
type AdjacencyList struct {
	adjacents []*Adjacent
}

func NewAdjacencyList(c *config.Config) *AdjacencyList {
	al := &AdjacencyList{}
	for _, n := range c.Neighbors {
		al.adjacents = append(al.adjacents, &Adjacent{
			Name:               n.NameN,
			Uri:                n.Uri,
			LinkCost:           n.LinkCost,
			Status:             StatusInactive,
			InterestTimedOutNo: c.InterestRetryNumber,
		})
	}
	return al
}

func (al *AdjacencyList) Get(name enc.Name) *Adjacent {
	for _, adj := range al.adjacents {
		if adj.Name.Equal(name) {
			return adj
		}
	}
	return nil
}

func (al *AdjacencyList) IsNeighbor(name enc.Name) bool {
	return al.Get(name) != nil
}

func (al *AdjacencyList) FindByFaceId(faceId uint64) *Adjacent {
	for _, adj := range al.adjacents {
		if adj.FaceId == faceId && faceId != 0 {
			return adj
		}
	}
	return nil
}

func (al *AdjacencyList) Adjacents() []*Adjacent {
	return al.adjacents
}

func (al *AdjacencyList) Size() int {
	return len(al.adjacents)
}

func (al *AdjacencyList) ActiveCount() int {
	count := 0
	for _, adj := range al.adjacents {
		if adj.Status == StatusActive {
			count++
		}
	}
	return count
}
