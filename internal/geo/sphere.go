package geo

import "math"

// epsilon is the relative tolerance used for containment and degeneracy checks.
const epsilon = 1e-9

// Sphere is a center and a radius.
type Sphere struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

// Contains reports whether p lies inside or on s, within tolerance.
func (s Sphere) Contains(p Point) bool {
	return s.Center.Dist(p) <= s.Radius+epsilon*(1+s.Radius)
}

// BoundingSphere returns the minimal sphere enclosing all points, computed
// with Welzl's algorithm. Points are processed in input order, so the result
// is deterministic. An empty input yields the zero sphere at the origin.
func BoundingSphere(points []Point) Sphere {
	if len(points) == 0 {
		return Sphere{}
	}
	pts := make([]Point, len(points))
	copy(pts, points)
	return welzl(pts, len(pts), nil)
}

// BoundingSphereCenter returns the center of BoundingSphere(points).
func BoundingSphereCenter(points []Point) Point {
	return BoundingSphere(points).Center
}

func welzl(pts []Point, n int, boundary []Point) Sphere {
	if n == 0 || len(boundary) == 4 {
		return trivialSphere(boundary)
	}
	p := pts[n-1]
	s := welzl(pts, n-1, boundary)
	if s.Contains(p) {
		return s
	}
	next := make([]Point, len(boundary), len(boundary)+1)
	copy(next, boundary)
	return welzl(pts, n-1, append(next, p))
}

// trivialSphere returns the smallest sphere with every boundary point on its surface.
func trivialSphere(b []Point) Sphere {
	switch len(b) {
	case 0:
		return Sphere{}
	case 1:
		return Sphere{Center: b[0]}
	case 2:
		return diameterSphere(b[0], b[1])
	case 3:
		return circumSphere3(b[0], b[1], b[2])
	default:
		return circumSphere4(b[0], b[1], b[2], b[3])
	}
}

func diameterSphere(a, b Point) Sphere {
	return Sphere{Center: a.Add(b).Scale(0.5), Radius: a.Dist(b) / 2}
}

// circumSphere3 is the sphere through a, b, c centered in their plane.
// Collinear input falls back to the sphere over the farthest pair.
func circumSphere3(a, b, c Point) Sphere {
	ab := b.Sub(a)
	ac := c.Sub(a)
	n := ab.Cross(ac)
	n2 := n.Norm2()
	if n2 <= epsilon*epsilon*(ab.Norm2()*ac.Norm2()+1) {
		return enclosingPair([]Point{a, b, c})
	}
	num := n.Cross(ab).Scale(ac.Norm2()).Add(ac.Cross(n).Scale(ab.Norm2()))
	offset := num.Scale(1 / (2 * n2))
	return Sphere{Center: a.Add(offset), Radius: math.Sqrt(offset.Norm2())}
}

// circumSphere4 is the sphere through four points. Coplanar input falls
// back to the smallest three-point sphere enclosing all four.
func circumSphere4(a, b, c, d Point) Sphere {
	u := b.Sub(a)
	v := c.Sub(a)
	w := d.Sub(a)
	det := u.Dot(v.Cross(w))
	scale := math.Sqrt(u.Norm2()*v.Norm2()*w.Norm2()) + 1
	if math.Abs(det) <= epsilon*scale {
		pts := []Point{a, b, c, d}
		candidates := []Sphere{
			circumSphere3(a, b, c),
			circumSphere3(a, b, d),
			circumSphere3(a, c, d),
			circumSphere3(b, c, d),
		}
		if s, ok := smallestContaining(candidates, pts); ok {
			return s
		}
		return enclosingPair(pts)
	}
	// Solve 2[u v w]^T x = [|u|^2 |v|^2 |w|^2] for x relative to a.
	num := v.Cross(w).Scale(u.Norm2()).
		Add(w.Cross(u).Scale(v.Norm2())).
		Add(u.Cross(v).Scale(w.Norm2()))
	offset := num.Scale(1 / (2 * det))
	return Sphere{Center: a.Add(offset), Radius: math.Sqrt(offset.Norm2())}
}

func smallestContaining(candidates []Sphere, pts []Point) (Sphere, bool) {
	var best Sphere
	found := false
	for _, s := range candidates {
		if found && s.Radius >= best.Radius {
			continue
		}
		ok := true
		for _, p := range pts {
			if !s.Contains(p) {
				ok = false
				break
			}
		}
		if ok {
			best = s
			found = true
		}
	}
	return best, found
}

// enclosingPair returns the diameter sphere of the farthest pair of points.
func enclosingPair(pts []Point) Sphere {
	var best Sphere
	bestDist := -1.0
	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			if d := pts[i].Dist(pts[j]); d > bestDist {
				bestDist = d
				best = diameterSphere(pts[i], pts[j])
			}
		}
	}
	return best
}
