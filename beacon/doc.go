// SPDX-License-Identifier: EPL-2.0

// Package beacon supplies PCM to a 3D audio system for every active audio
// beacon and keeps each beacon's direction relative to a moving listener up
// to date.
//
// Two goroutines share the package's state:
//
//   - the geometry goroutine calls Engine.UpdateGeometry periodically (about
//     every 50ms). It takes the engine's registry lock, recomputes every
//     beacon's off-axis angle and destroys beacons whose stream has ended;
//   - the audio system calls each beacon's pull function on its own
//     schedule. A pull never takes the registry lock: it loads the most
//     recently published angle atomically and copies bytes.
//
// # Sources
//
// A Beacon owns exactly one Source:
//
//   - DirectionalSource loops over pre-decoded SampleBuffers, each tagged
//     with an activation angle. The buffer whose angle first covers the
//     current off-axis angle is the one that plays.
//   - LiveSource streams from an io.Reader such as a socket carrying
//     synthesized speech. The producer may never close the stream, so a
//     short pull after speech was confirmed flowing is taken as the end of
//     the utterance.
//
// # Lifecycle
//
//	eng, _ := beacon.NewEngine(system)
//	src, _ := beacon.LoadDirectionalSource(loader, format, layers)
//	b, _ := beacon.New(eng, lat, lon, src)
//	...
//	eng.UpdateGeometry(listenerLat, listenerLon, heading)
//	...
//	b.Close()   // deregister, then release sound and source
//	eng.Close() // destroys whatever is left, then closes the system
//
// Destruction always deregisters a beacon before releasing its sound, and the
// AudioSystem guarantees that a released sound is never pulled again.
package beacon
