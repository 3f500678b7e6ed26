package audio

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		{0x00},
		{0xFF, 0xFE, 0x80, 0x7F},
		[]byte("hello world"),
	}

	// Every byte value once, plus a long pseudo-random-ish buffer.
	all := make([]byte, 256)
	for i := range all {
		all[i] = byte(i)
	}
	cases = append(cases, all)

	long := make([]byte, 4096)
	for i := range long {
		long[i] = byte(i * 31)
	}
	cases = append(cases, long)

	for _, in := range cases {
		out, err := DecodeBytes(EncodeBytes(in))
		if err != nil {
			t.Fatalf("round trip failed for %d bytes: %v", len(in), err)
		}
		if !bytes.Equal(in, out) {
			t.Errorf("round trip mismatch for %d bytes", len(in))
		}
	}
}

func TestDecodeBytes_Malformed(t *testing.T) {
	_, err := DecodeBytes("not!!valid@@base64")
	if err == nil {
		t.Fatal("expected error for malformed input")
	}
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Errorf("expected *FormatError, got %T", err)
	}
}

func TestPCMToSamples_Normalization(t *testing.T) {
	// -32768, 0, 16384, 32767 little-endian.
	pcm := []byte{0x00, 0x80, 0x00, 0x00, 0x00, 0x40, 0xFF, 0x7F}
	samples, err := PCMToSamples(pcm)
	if err != nil {
		t.Fatalf("PCMToSamples: %v", err)
	}
	want := []float32{-1, 0, 0.5, 32767.0 / 32768.0}
	if len(samples) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(samples))
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, samples[i], want[i])
		}
	}
}

func TestPCMToSamples_DanglingByte(t *testing.T) {
	_, err := PCMToSamples([]byte{0x01, 0x02, 0x03})
	if err == nil {
		t.Fatal("expected error for odd-length buffer")
	}
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Errorf("expected *FormatError, got %T", err)
	}
}

func TestPCMSampleRoundTrip(t *testing.T) {
	// Every representable 16-bit value must survive the float round trip
	// within one quantization step.
	pcm := make([]byte, 0, 65536*2)
	for v := -32768; v <= 32767; v++ {
		pcm = append(pcm, byte(uint16(int16(v))), byte(uint16(int16(v))>>8))
	}

	samples, err := PCMToSamples(pcm)
	if err != nil {
		t.Fatalf("PCMToSamples: %v", err)
	}
	back := SamplesToPCM(samples)
	if len(back) != len(pcm) {
		t.Fatalf("length mismatch: got %d, want %d", len(back), len(pcm))
	}
	for i := 0; i < len(pcm); i += 2 {
		orig := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		got := int16(uint16(back[i]) | uint16(back[i+1])<<8)
		if math.Abs(float64(orig)-float64(got)) > 1 {
			t.Fatalf("value %d came back as %d", orig, got)
		}
	}
}

func TestSamplesToPCM_Clamping(t *testing.T) {
	pcm := SamplesToPCM([]float32{1.5, -1.5, 1.0})
	check := []int16{32767, -32768, 32767}
	for i, want := range check {
		got := int16(uint16(pcm[i*2]) | uint16(pcm[i*2+1])<<8)
		if got != want {
			t.Errorf("sample %d: got %d, want %d", i, got, want)
		}
	}
}

func TestDuration(t *testing.T) {
	if d := Duration(24000, 24000); d != 1.0 {
		t.Errorf("expected 1s, got %v", d)
	}
	if d := Duration(4096, 16000); d != 0.256 {
		t.Errorf("expected 0.256s, got %v", d)
	}
	if d := Duration(100, 0); d != 0 {
		t.Errorf("expected 0 for zero rate, got %v", d)
	}
}
