package crs

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// mercatorStrategy is the primary strategy. It covers the one pair that
// dominates real traffic, WGS84 <-> Web Mercator, using orb's projection.
type mercatorStrategy struct{}

func (mercatorStrategy) Name() string { return "orb-mercator" }

func (mercatorStrategy) Transform(g orb.Geometry, sourceSRID, targetSRID int) (orb.Geometry, error) {
	switch {
	case sourceSRID == WGS84 && targetSRID == WebMercator:
		return project.Geometry(orb.Clone(g), project.WGS84.ToMercator), nil
	case sourceSRID == WebMercator && targetSRID == WGS84:
		return project.Geometry(orb.Clone(g), project.Mercator.ToWGS84), nil
	default:
		return nil, errUnsupportedPair
	}
}

// ellipsoidalStrategy is the fallback. It routes every transform through
// WGS84 geographic coordinates using closed-form projection math: spherical
// web mercator plus an ellipsoidal transverse Mercator that covers the UTM
// zones and the VN-2000 local grid family.
type ellipsoidalStrategy struct{}

func (ellipsoidalStrategy) Name() string { return "transverse-mercator" }

func (ellipsoidalStrategy) Transform(g orb.Geometry, sourceSRID, targetSRID int) (orb.Geometry, error) {
	toGeo, err := inverseProjection(sourceSRID)
	if err != nil {
		return nil, err
	}
	fromGeo, err := forwardProjection(targetSRID)
	if err != nil {
		return nil, err
	}

	return project.Geometry(orb.Clone(g), func(p orb.Point) orb.Point {
		return fromGeo(toGeo(p))
	}), nil
}

// WGS84 ellipsoid.
const (
	semiMajor    = 6378137.0
	flattening   = 1.0 / 298.257223563
	eccentricity = flattening * (2 - flattening) // e^2
)

// tmParams describes one transverse-Mercator grid.
type tmParams struct {
	lon0         float64 // central meridian, degrees
	scale        float64
	falseEasting float64
	falseNorth   float64
}

// vn2000Zones maps the VN-2000 zone SRIDs the PRJ detector emits onto their
// 3-degree central meridians.
var vn2000Zones = map[int]float64{
	4814: 104.5,
	4815: 106.0,
	4816: 107.5,
}

func tmParamsForSRID(srid int) (tmParams, bool) {
	switch {
	case srid >= 32601 && srid <= 32660: // UTM north
		return tmParams{lon0: float64(srid-32600)*6 - 183, scale: 0.9996, falseEasting: 500000}, true
	case srid >= 32701 && srid <= 32760: // UTM south
		return tmParams{lon0: float64(srid-32700)*6 - 183, scale: 0.9996, falseEasting: 500000, falseNorth: 10000000}, true
	}
	if lon0, ok := vn2000Zones[srid]; ok {
		return tmParams{lon0: lon0, scale: 0.9999, falseEasting: 500000}, true
	}
	return tmParams{}, false
}

func forwardProjection(srid int) (func(orb.Point) orb.Point, error) {
	if srid == WGS84 {
		return func(p orb.Point) orb.Point { return p }, nil
	}
	if srid == WebMercator {
		return sphericalMercatorForward, nil
	}
	if params, ok := tmParamsForSRID(srid); ok {
		return func(p orb.Point) orb.Point { return tmForward(p, params) }, nil
	}
	return nil, fmt.Errorf("no projection registered for EPSG:%d", srid)
}

func inverseProjection(srid int) (func(orb.Point) orb.Point, error) {
	if srid == WGS84 {
		return func(p orb.Point) orb.Point { return p }, nil
	}
	if srid == WebMercator {
		return sphericalMercatorInverse, nil
	}
	if params, ok := tmParamsForSRID(srid); ok {
		return func(p orb.Point) orb.Point { return tmInverse(p, params) }, nil
	}
	return nil, fmt.Errorf("no projection registered for EPSG:%d", srid)
}

func sphericalMercatorForward(p orb.Point) orb.Point {
	x := semiMajor * p[0] * math.Pi / 180
	y := semiMajor * math.Log(math.Tan(math.Pi/4+p[1]*math.Pi/360))
	return orb.Point{x, y}
}

func sphericalMercatorInverse(p orb.Point) orb.Point {
	lng := p[0] / semiMajor * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(p[1]/semiMajor)) - math.Pi/2) * 180 / math.Pi
	return orb.Point{lng, lat}
}

// meridionalArc computes the distance along the meridian from the equator to
// latitude phi (radians). Standard series expansion in e^2.
func meridionalArc(phi float64) float64 {
	e2 := eccentricity
	e4 := e2 * e2
	e6 := e4 * e2
	return semiMajor * ((1-e2/4-3*e4/64-5*e6/256)*phi -
		(3*e2/8+3*e4/32+45*e6/1024)*math.Sin(2*phi) +
		(15*e4/256+45*e6/1024)*math.Sin(4*phi) -
		(35*e6/3072)*math.Sin(6*phi))
}

// tmForward projects geographic lng/lat (degrees) onto a transverse-Mercator
// grid. Snyder's series formulation; sub-millimeter within a zone.
func tmForward(p orb.Point, g tmParams) orb.Point {
	phi := p[1] * math.Pi / 180
	lambda := (p[0] - g.lon0) * math.Pi / 180

	e2 := eccentricity
	ep2 := e2 / (1 - e2)

	sinPhi := math.Sin(phi)
	cosPhi := math.Cos(phi)
	tanPhi := math.Tan(phi)

	n := semiMajor / math.Sqrt(1-e2*sinPhi*sinPhi)
	t := tanPhi * tanPhi
	c := ep2 * cosPhi * cosPhi
	a := lambda * cosPhi
	m := meridionalArc(phi)

	a2 := a * a
	a3 := a2 * a
	a4 := a3 * a
	a5 := a4 * a
	a6 := a5 * a

	x := g.falseEasting + g.scale*n*(a+
		(1-t+c)*a3/6+
		(5-18*t+t*t+72*c-58*ep2)*a5/120)
	y := g.falseNorth + g.scale*(m+n*tanPhi*(a2/2+
		(5-t+9*c+4*c*c)*a4/24+
		(61-58*t+t*t+600*c-330*ep2)*a6/720))

	return orb.Point{x, y}
}

// tmInverse is the matching inverse projection back to geographic degrees.
func tmInverse(p orb.Point, g tmParams) orb.Point {
	e2 := eccentricity
	e4 := e2 * e2
	e6 := e4 * e2
	ep2 := e2 / (1 - e2)

	m := (p[1] - g.falseNorth) / g.scale
	mu := m / (semiMajor * (1 - e2/4 - 3*e4/64 - 5*e6/256))

	e1 := (1 - math.Sqrt(1-e2)) / (1 + math.Sqrt(1-e2))
	phi1 := mu +
		(3*e1/2-27*e1*e1*e1/32)*math.Sin(2*mu) +
		(21*e1*e1/16-55*e1*e1*e1*e1/32)*math.Sin(4*mu) +
		(151*e1*e1*e1/96)*math.Sin(6*mu) +
		(1097*e1*e1*e1*e1/512)*math.Sin(8*mu)

	sinPhi1 := math.Sin(phi1)
	cosPhi1 := math.Cos(phi1)
	tanPhi1 := math.Tan(phi1)

	c1 := ep2 * cosPhi1 * cosPhi1
	t1 := tanPhi1 * tanPhi1
	n1 := semiMajor / math.Sqrt(1-e2*sinPhi1*sinPhi1)
	r1 := semiMajor * (1 - e2) / math.Pow(1-e2*sinPhi1*sinPhi1, 1.5)
	d := (p[0] - g.falseEasting) / (n1 * g.scale)

	d2 := d * d
	d3 := d2 * d
	d4 := d3 * d
	d5 := d4 * d
	d6 := d5 * d

	phi := phi1 - (n1 * tanPhi1 / r1) * (d2/2 -
		(5+3*t1+10*c1-4*c1*c1-9*ep2)*d4/24 +
		(61+90*t1+298*c1+45*t1*t1-252*ep2-3*c1*c1)*d6/720)
	lambda := (d -
		(1+2*t1+c1)*d3/6 +
		(5-2*c1+28*t1-3*c1*c1+8*ep2+24*t1*t1)*d5/120) / cosPhi1

	return orb.Point{g.lon0 + lambda*180/math.Pi, phi * 180 / math.Pi}
}
