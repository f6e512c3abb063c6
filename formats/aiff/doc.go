// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes big-endian AIFF files through
// github.com/go-audio/aiff. Integer PCM at 16, 24 and 32 bits is accepted;
// samples are normalized to [-1, 1] like every other audio.Source.
package aiff
