package bvh

import (
	"github.com/fbbdev/rendirt/pkg/geometry"
	"github.com/fbbdev/rendirt/pkg/math3d"
)

// Hit describes the nearest leaf volume struck by a ray: the parameter at
// which the ray enters the leaf's box, the box itself, and the outward
// normal of the box face crossed on entry. Rays starting inside the box get
// the reversed ray direction as normal.
type Hit struct {
	T      float64
	Box    geometry.AABB
	Normal math3d.Vec3
}

// CastRay finds the nearest leaf whose box the ray enters within
// (tMin, tMax). Children are visited near-first, and subtrees entered beyond
// the best hit so far are pruned.
func (t *Tree) CastRay(r math3d.Ray, tMin, tMax float64) (Hit, bool) {
	if len(t.Nodes) == 0 {
		return Hit{}, false
	}

	tEnter, axis, ok := hitBox(t.Nodes[0].Box, r, tMin, tMax)
	if !ok {
		return Hit{}, false
	}
	return t.descend(0, r, tEnter, axis, tMin, tMax)
}

// descend resolves node i, whose box the ray is already known to enter at
// tEnter through the face on the given axis.
func (t *Tree) descend(i int, r math3d.Ray, tEnter float64, axis int, tMin, tMax float64) (Hit, bool) {
	n := t.Nodes[i]
	if n.Leaf() {
		return Hit{T: tEnter, Box: n.Box, Normal: entryNormal(axis, r.Dir)}, true
	}

	near, far := n.Left, n.Right
	nearT, nearAxis, nearOK := hitBox(t.Nodes[near].Box, r, tMin, tMax)
	farT, farAxis, farOK := hitBox(t.Nodes[far].Box, r, tMin, tMax)

	if farOK && (!nearOK || farT < nearT) {
		near, far = far, near
		nearT, farT = farT, nearT
		nearAxis, farAxis = farAxis, nearAxis
		nearOK, farOK = farOK, nearOK
	}

	if nearOK {
		if hit, ok := t.descend(near, r, nearT, nearAxis, tMin, tMax); ok {
			// The far child can only improve the hit if the ray enters its
			// box before the current hit point.
			if farOK && farT < hit.T {
				if farHit, ok := t.descend(far, r, farT, farAxis, tMin, hit.T); ok && farHit.T < hit.T {
					hit = farHit
				}
			}
			return hit, true
		}
	}
	if farOK {
		return t.descend(far, r, farT, farAxis, tMin, tMax)
	}
	return Hit{}, false
}

// hitBox performs the slab test between ray and box, clipped to the interval
// (tMin, tMax). It returns the entry parameter and the axis of the slab
// crossed on entry; axis is -1 when the ray starts inside the box. Rays
// parallel to a slab hit only if their origin lies within it.
func hitBox(box geometry.AABB, r math3d.Ray, tMin, tMax float64) (tEnter float64, axis int, ok bool) {
	tEnter, axis = tMin, -1

	for a := range 3 {
		origin := r.Origin.Component(a)
		dir := r.Dir.Component(a)
		lo := box.From.Component(a)
		hi := box.To.Component(a)

		if dir == 0 {
			if origin < lo || origin > hi {
				return 0, 0, false
			}
			continue
		}

		inv := 1 / dir
		t0 := (lo - origin) * inv
		t1 := (hi - origin) * inv
		if inv < 0 {
			t0, t1 = t1, t0
		}

		if t0 > tEnter {
			tEnter, axis = t0, a
		}
		if t1 < tMax {
			tMax = t1
		}
		// Not strict: a box flat along one axis still registers when the
		// ray pierces its plane.
		if tMax < tEnter {
			return 0, 0, false
		}
	}

	return tEnter, axis, true
}

// entryNormal returns the outward normal of the box face crossed on entry:
// the entry axis, pointing against the ray.
func entryNormal(axis int, dir math3d.Vec3) math3d.Vec3 {
	if axis < 0 {
		return dir.Normalize().Negate()
	}

	var n math3d.Vec3
	switch axis {
	case 0:
		n = math3d.V3(1, 0, 0)
	case 1:
		n = math3d.V3(0, 1, 0)
	default:
		n = math3d.V3(0, 0, 1)
	}
	if dir.Component(axis) > 0 {
		n = n.Negate()
	}
	return n
}
