// SPDX-License-Identifier: EPL-2.0

// Package geo provides the small amount of geodesy needed to point a listener
// at an audio beacon.
//
// All functions take and return decimal degrees; internally they work in
// radians. The earth is modelled as a sphere of radius EarthRadius (the WGS84
// equatorial radius), which is accurate enough for beacons that are tens of
// meters to a few kilometers from the listener.
//
// # Bearing and Distance
//
//	b := geo.Bearing(55.9533, -3.1883, 55.9486, -3.2008) // degrees, (-180, 180]
//	d := geo.Distance(55.9533, -3.1883, 55.9486, -3.2008) // meters
//
// # Off-axis Angle
//
// The angle between where a listener faces and where a beacon lies is
// normalised into (-180, 180]:
//
//	off := geo.NormalizeAngle(bearing - heading)
//
// # Synthetic Positions
//
// DestinationPoint projects a point a given distance along a bearing and is
// mostly useful to build scenarios and tests:
//
//	lat, lon := geo.DestinationPoint(55.9533, -3.1883, 90, 250)
package geo
