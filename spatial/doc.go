// SPDX-License-Identifier: EPL-2.0

// Package spatial is a software implementation of the 3D audio system that a
// beacon.Engine drives.
//
// A System keeps one stream per beacon. Each stream wraps the beacon's pull
// callback in a beep.Streamer, resamples it to the output rate when needed,
// pans it by the bearing from the listener relative to the listener's
// heading and attenuates it with inverse-distance rolloff between the
// stream's minimum and maximum distance:
//
//	pan  = sin(bearing(listener, channel) - heading)
//	gain = min / clamp(distance, min, max)
//
// Panning only moves signal between the sides; the louder side of a panned
// stream plays at gain, the same level as a stream straight ahead.
//
// Positions use the engine's mapping, {X: longitude, Z: latitude}, so
// distances and bearings are computed on the sphere with package geo.
//
// The mix is pulled, never pushed. Output hands the System to the default
// audio device through oto; Render writes a fixed number of frames to any
// io.Writer, which is how scenarios are rendered offline and how the tests
// drive the mixer.
//
// Release waits for any mix in progress before returning, so a beacon whose
// sound was released never sees its pull callback run again.
package spatial
