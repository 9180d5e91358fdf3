package block

// Point is a coordinate in page space, y growing downward.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Polygon is the detector-reported bounding polygon of a block, in page
// coordinates. Detectors typically emit four corners but any count works.
type Polygon []Point

// Rect is an axis-aligned bounding box.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// Rect returns the axis-aligned bounding box of the polygon. An empty
// polygon yields the zero Rect.
func (p Polygon) Rect() Rect {
	if len(p) == 0 {
		return Rect{}
	}
	r := Rect{X0: p[0].X, Y0: p[0].Y, X1: p[0].X, Y1: p[0].Y}
	for _, pt := range p[1:] {
		if pt.X < r.X0 {
			r.X0 = pt.X
		}
		if pt.X > r.X1 {
			r.X1 = pt.X
		}
		if pt.Y < r.Y0 {
			r.Y0 = pt.Y
		}
		if pt.Y > r.Y1 {
			r.Y1 = pt.Y
		}
	}
	return r
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }
func (r Rect) Area() float64   { return r.Width() * r.Height() }

// IsZero reports whether the rect is the zero value, which stands for
// "no geometry supplied".
func (r Rect) IsZero() bool {
	return r.X0 == 0 && r.Y0 == 0 && r.X1 == 0 && r.Y1 == 0
}

// Union returns the smallest rect covering both r and o. A zero rect is
// treated as absent rather than as a point at the origin.
func (r Rect) Union(o Rect) Rect {
	if r.IsZero() {
		return o
	}
	if o.IsZero() {
		return r
	}
	u := r
	if o.X0 < u.X0 {
		u.X0 = o.X0
	}
	if o.Y0 < u.Y0 {
		u.Y0 = o.Y0
	}
	if o.X1 > u.X1 {
		u.X1 = o.X1
	}
	if o.Y1 > u.Y1 {
		u.Y1 = o.Y1
	}
	return u
}
