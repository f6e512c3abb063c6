// SPDX-License-Identifier: EPL-2.0

// Package audio holds the float32 sample pipeline that turns decoded assets
// into the PCM16 buffers beacons play.
//
// A Source yields interleaved float32 samples in [-1, 1]. Decoders in the
// formats packages produce Sources; Resampler and ChannelMixer wrap them:
//
//	src, _ := registry.Open("tactile_on_axis.wav", f)
//	pcm, _ := audio.ConvertPCM16(src, 44100, 1)
//
// ConvertPCM16 resamples and mixes only when the source differs from the
// requested format. Sources report io.EOF with or after their last samples.
package audio
