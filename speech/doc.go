// SPDX-License-Identifier: EPL-2.0

// Package speech carries live text-to-speech audio to beacons.
//
// Synthesized speech usually arrives as a sequence of messages (a WebSocket,
// a streaming TTS response) rather than on a net.Conn. A Pipe turns such
// messages back into a byte stream with read deadlines, which is what a
// beacon.LiveSource needs to bound how long its pull callback may block:
//
//	p := speech.NewPipe(1 << 20)
//	src, _ := beacon.NewLiveSource(p, format, chunk, beacon.WithReadTimeout(50*time.Millisecond))
//	// producer goroutine
//	p.Write(pcm)
//	p.Close() // end of speech
package speech
