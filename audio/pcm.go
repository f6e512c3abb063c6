// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audbeacon/utils"
)

// ConvertPCM16 drains src through a resampler and channel mixer and returns
// the whole stream as interleaved PCM16 little-endian bytes. src is not
// closed.
func ConvertPCM16(src Source, rate, channels int) ([]byte, error) {
	if rate <= 0 || channels <= 0 {
		return nil, ErrInvalidFormat
	}

	var s Source = src
	if src.SampleRate() != rate {
		s = NewResampler(s, rate)
	}
	if s.Channels() != channels {
		s = NewChannelMixer(s, channels)
	}

	size := max(src.BufSize(), 1024)
	size -= size % channels
	buf := make([]float32, size)

	var out []byte
	for {
		n, err := s.ReadSamples(buf)
		out = AppendPCM16(out, buf[:n])

		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("converting to pcm16: %w", err)
		}
		if n == 0 {
			return out, nil
		}
	}
}

// AppendPCM16 appends samples to dst as PCM16 little-endian, clamping to
// [-1, 1].
func AppendPCM16(dst []byte, samples []float32) []byte {
	for _, s := range samples {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(utils.Float32ToInt16(s)))
	}
	return dst
}

// DecodePCM16 converts PCM16 little-endian bytes into float32 samples and
// returns how many were written. A trailing odd byte is ignored.
func DecodePCM16(dst []float32, pcm []byte) int {
	n := min(len(dst), len(pcm)/2)
	for i := range n {
		dst[i] = utils.Int16ToFloat32(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	return n
}
