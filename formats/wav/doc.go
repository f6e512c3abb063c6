// SPDX-License-Identifier: EPL-2.0

// Package wav decodes and writes RIFF WAV files through
// github.com/go-audio/wav.
//
// Decoder accepts integer PCM at 16, 24 or 32 bits in any channel layout
// and yields an audio.Source:
//
//	src, err := wav.Decoder{}.Decode(f)
//
// WriteWAV16 stores PCM16 little-endian bytes, the sample format beacons
// pull, so rendered scenes can be listened to offline:
//
//	err := wav.WriteWAV16(out, 44100, 2, pcm)
package wav
