package route

import (
	"math"

	"github.com/named-data/ndnd/std/log"

	"github.com/named-data/nlsr/lsa"
	"github.com/named-data/nlsr/table"
)

// calculateHyperbolic ranks, for every destination router, this
// router's direct neighbors by hyperbolic distance between the neighbor
// and the destination coordinates, taking the closest K.
func (calc *Calculator) calculateHyperbolic() *table.RoutingTable {
	rt := table.NewRoutingTable()
	own := calc.config.RouterPrefix()

	coords := make(map[uint64]*lsa.CoordinateLsa)
	for _, l := range calc.db.Iterate(lsa.TypeCoordinate) {
		cl := l.(*lsa.CoordinateLsa)
		coords[cl.OriginRouter.Hash()] = cl
	}

	for destH, dest := range coords {
		if dest.OriginRouter.Equal(own) {
			continue
		}

		var hops table.NextHopList
		for _, adj := range calc.adjacencies.Adjacents() {
			if adj.Status != table.StatusActive || adj.FaceId == 0 {
				continue
			}
			nb, ok := coords[adj.Name.Hash()]
			if !ok {
				log.Debug(calc, "No coordinates for neighbor", "neighbor", adj.Name)
				continue
			}

			var d float64
			if adj.Name.Hash() == destH {
				d = 0
			} else {
				d = hyperbolicDistance(nb, dest)
				if math.IsNaN(d) || d < 0 {
					continue
				}
			}
			hops = append(hops, table.NextHop{
				Neighbor: adj.Name,
				FaceId:   adj.FaceId,
				Cost:     d,
			})
		}
		hops.Sort()
		rt.Set(dest.OriginRouter, hops.Trim(calc.config.MaxFacesPerPrefix))
	}

	return rt
}

// hyperbolicDistance computes the distance between two routers on the
// hyperbolic plane (or its higher-dimensional generalization).
func hyperbolicDistance(a, b *lsa.CoordinateLsa) float64 {
	if len(a.Angles) == 0 || len(a.Angles) != len(b.Angles) {
		return math.NaN()
	}

	// angular separation on the n-sphere
	deltaTheta := angularDistance(a.Angles, b.Angles)

	r1, r2 := a.Radius, b.Radius
	if deltaTheta == 0 {
		return math.Abs(r1 - r2)
	}
	return math.Acosh(math.Cosh(r1)*math.Cosh(r2) -
		math.Sinh(r1)*math.Sinh(r2)*math.Cos(deltaTheta))
}

func angularDistance(a, b []float64) float64 {
	if len(a) == 1 {
		d := math.Abs(a[0] - b[0])
		return math.Min(d, 2*math.Pi-d)
	}

	// angle between the unit vectors given in spherical coordinates
	dot := 0.0
	sinsA, sinsB := 1.0, 1.0
	for i := range a {
		dot += sinsA * math.Cos(a[i]) * sinsB * math.Cos(b[i])
		sinsA *= math.Sin(a[i])
		sinsB *= math.Sin(b[i])
	}
	dot += sinsA * sinsB
	return math.Acos(math.Max(-1, math.Min(1, dot)))
}
