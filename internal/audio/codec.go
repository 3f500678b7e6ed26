// Package audio converts between raw PCM byte buffers, normalized
// floating-point sample buffers, and the text-safe transport encoding
// used on the wire. All transforms are pure and stateless.
package audio

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
)

// BytesPerSample is the width of one signed 16-bit PCM sample.
const BytesPerSample = 2

// FormatError reports a malformed transport payload or PCM buffer.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("audio format error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("audio format error: %s", e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

// EncodeBytes returns the text-safe transport representation of raw bytes.
// The encoding is deterministic and reversible with no data loss.
func EncodeBytes(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBytes is the inverse of EncodeBytes. Malformed input yields a
// *FormatError.
func DecodeBytes(text string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return nil, &FormatError{Reason: "invalid transport encoding", Err: err}
	}
	return data, nil
}

// PCMToSamples interprets pcm as little-endian signed 16-bit mono samples
// and normalizes each into [-1, 1]. A buffer with a dangling byte yields
// a *FormatError.
func PCMToSamples(pcm []byte) ([]float32, error) {
	if len(pcm)%BytesPerSample != 0 {
		return nil, &FormatError{Reason: fmt.Sprintf("pcm length %d is not sample-aligned", len(pcm))}
	}
	samples := make([]float32, len(pcm)/BytesPerSample)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(pcm[i*BytesPerSample:]))
		samples[i] = float32(v) / 32768
	}
	return samples, nil
}

// SamplesToPCM is the inverse of PCMToSamples: scales each sample by 32768
// and clamps into the signed 16-bit range before packing little-endian.
func SamplesToPCM(samples []float32) []byte {
	pcm := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		v := int32(s * 32768)
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(pcm[i*BytesPerSample:], uint16(int16(v)))
	}
	return pcm
}

// Duration returns the playback duration in seconds of sampleCount mono
// samples at the given rate.
func Duration(sampleCount, sampleRateHz int) float64 {
	if sampleRateHz <= 0 {
		return 0
	}
	return float64(sampleCount) / float64(sampleRateHz)
}
