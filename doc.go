// SPDX-License-Identifier: EPL-2.0

// Package audbeacon keeps a 3D audio engine supplied with PCM for audio
// beacons placed around a moving listener.
//
// A beacon is a sound anchored at a geographic position. Directional beacons
// loop pre-decoded assets and switch between them depending on where the
// listener is facing; speech beacons play live synthesized speech until the
// stream ends. The audio system pulls PCM from every beacon on its own
// goroutine while the caller moves the listener on another.
//
// # Handle API
//
// Runtime names engines and beacons by opaque UUIDs:
//
//	r := audbeacon.New()
//	eng, _ := r.CreateEngine()
//	id, _ := r.CreateDirectionalBeacon(eng, 51.5010, -0.1246)
//
//	// once per tick, from the location provider
//	r.UpdateGeometry(eng, lat, lon, heading)
//
//	r.DestroyBeacon(eng, id)
//	r.DestroyEngine(eng)
//
// A failed creation returns uuid.Nil and leaves nothing behind. Speech
// beacons that reach the end of their stream are removed on the next
// UpdateGeometry.
//
// # Packages
//
//   - beacon: sample buffers, the directional and live sources, Beacon and
//     Engine, and the AudioSystem contract the engine drives
//   - spatial: a software AudioSystem with device output and offline rendering
//   - speech: a deadline-aware pipe for speech arriving as messages
//   - assets: asset loading and synthetic beacon tones
//   - audio, formats: the decoding pipeline behind the assets
//   - geo: bearing, distance and angle helpers
//
// By default every engine gets its own spatial.System at 44.1 kHz and
// directional beacons use synthesized tactile tones; WithSystemFactory and
// WithLoader replace both.
package audbeacon
