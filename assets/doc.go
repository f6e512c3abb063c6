// SPDX-License-Identifier: EPL-2.0

// Package assets turns beacon asset names into PCM16 buffers.
//
// Loader reads files from an fs.FS and decodes them with the format
// decoders, converting to the sample rate and channel count the beacon
// asks for. SynthLoader renders built-in click patterns and is the fallback
// when an installation ships no recordings; WriteDefaults puts the same
// patterns on disk as WAV files.
package assets
