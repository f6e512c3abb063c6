// SPDX-License-Identifier: EPL-2.0

package wav

import (
	"encoding/binary"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const writeChunk = 8192

// WriteWAV16 writes interleaved PCM16 little-endian bytes as a 16-bit WAV
// file. The header sizes are patched on completion, hence the WriteSeeker.
func WriteWAV16(w io.WriteSeeker, sampleRate, channels int, pcm []byte) error {
	if len(pcm)%(2*channels) != 0 {
		return ErrOddPCMLength
	}

	enc := wav.NewEncoder(w, sampleRate, 16, channels, formatPCM)

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           make([]int, 0, writeChunk),
		SourceBitDepth: 16,
	}

	for len(pcm) > 0 {
		n := min(len(pcm)/2, writeChunk)
		buf.Data = buf.Data[:n]
		for i := range n {
			buf.Data[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
		}
		pcm = pcm[2*n:]

		if err := enc.Write(buf); err != nil {
			return fmt.Errorf("writing wav samples: %w", err)
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing wav: %w", err)
	}

	return nil
}
