// SPDX-License-Identifier: EPL-2.0

package geo

import "math"

const (
	// EarthRadius is the WGS84 equatorial radius in meters.
	EarthRadius = 6378137.0

	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi
)

// ToRadians converts degrees to radians.
func ToRadians(deg float64) float64 { return deg * degToRad }

// ToDegrees converts radians to degrees.
func ToDegrees(rad float64) float64 { return rad * radToDeg }

// NormalizeAngle folds an angle in degrees into the half-open range (-180, 180].
func NormalizeAngle(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg > 180 {
		deg -= 360
	} else if deg <= -180 {
		deg += 360
	}

	return deg
}

// Bearing returns the initial bearing in degrees from (lat1, lon1) to
// (lat2, lon2), normalised into (-180, 180]. Identical points yield
// atan2(0, 0), which is 0.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dLambda := (lon2 - lon1) * degToRad

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	return NormalizeAngle(math.Atan2(y, x) * radToDeg)
}

// Distance returns the haversine great-circle distance in meters between two
// points. Identical points are exactly 0 apart.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 == lat2 && lon1 == lon2 {
		return 0
	}

	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dPhi := (lat2 - lat1) * degToRad
	dLambda := (lon2 - lon1) * degToRad

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadius * c
}

// DestinationPoint projects distance meters from (lat, lon) along bearingDeg and
// returns the resulting latitude and longitude. The longitude is normalised
// into (-180, 180].
func DestinationPoint(lat, lon, bearingDeg, distance float64) (float64, float64) {
	phi1 := lat * degToRad
	lambda1 := lon * degToRad
	theta := bearingDeg * degToRad
	delta := distance / EarthRadius

	sinPhi2 := math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta)
	phi2 := math.Asin(sinPhi2)
	y := math.Sin(theta) * math.Sin(delta) * math.Cos(phi1)
	x := math.Cos(delta) - math.Sin(phi1)*sinPhi2
	lambda2 := lambda1 + math.Atan2(y, x)

	return phi2 * radToDeg, NormalizeAngle(lambda2 * radToDeg)
}
