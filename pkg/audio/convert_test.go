package audio_test

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/brandonviaje/echo/pkg/audio"
)

// samplesToBytes converts a slice of int16 samples to little-endian bytes.
func samplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// bytesToSamples converts a little-endian byte slice to int16 samples.
func bytesToSamples(b []byte) []int16 {
	samples := make([]int16, len(b)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return samples
}

func TestMonoToStereo(t *testing.T) {
	mono := samplesToBytes([]int16{100, 200, 300})
	got := bytesToSamples(audio.MonoToStereo(mono))
	want := []int16{100, 100, 200, 200, 300, 300}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestStereoToMono(t *testing.T) {
	stereo := samplesToBytes([]int16{100, 200, -100, -200})
	got := bytesToSamples(audio.StereoToMono(stereo))
	want := []int16{150, -150}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestStereoToMonoClamps(t *testing.T) {
	// Both channels at extremes; the average must stay in int16 range.
	stereo := samplesToBytes([]int16{32767, 32767, -32768, -32768})
	got := bytesToSamples(audio.StereoToMono(stereo))
	if got[0] != 32767 {
		t.Errorf("positive extreme = %d, want 32767", got[0])
	}
	if got[1] != -32768 {
		t.Errorf("negative extreme = %d, want -32768", got[1])
	}
}

func TestResampleMono16Halves(t *testing.T) {
	// 48 kHz → 16 kHz keeps one of every three samples' worth of duration.
	src := make([]int16, 480) // 10 ms at 48 kHz
	for i := range src {
		src[i] = int16(i)
	}
	out := audio.ResampleMono16(samplesToBytes(src), 48000, 16000)
	if got := len(out) / 2; got != 160 {
		t.Fatalf("resampled to %d samples, want 160", got)
	}
}

func TestResampleMono16SameRatePassthrough(t *testing.T) {
	src := samplesToBytes([]int16{1, 2, 3})
	out := audio.ResampleMono16(src, 16000, 16000)
	if &out[0] != &src[0] {
		t.Error("same-rate resample should return the input unchanged")
	}
}

func TestFormatConverterDiscordToRecognition(t *testing.T) {
	conv := &audio.FormatConverter{Target: audio.Format{SampleRate: 16000, Channels: 1}}

	// One 20 ms 48 kHz stereo frame.
	in := audio.Frame{Data: make([]byte, 3840), SampleRate: 48000, Channels: 2}
	out := conv.Convert(in)

	if out.SampleRate != 16000 || out.Channels != 1 {
		t.Fatalf("converted to %dHz/%dch, want 16000Hz/1ch", out.SampleRate, out.Channels)
	}
	if len(out.Data) != 640 {
		t.Errorf("converted frame is %d bytes, want 640", len(out.Data))
	}
}

func TestFormatConverterDropsMisalignedData(t *testing.T) {
	conv := &audio.FormatConverter{Target: audio.Format{SampleRate: 16000, Channels: 1}}

	out := conv.Convert(audio.Frame{Data: make([]byte, 41), SampleRate: 48000, Channels: 2})
	if out.Data != nil {
		t.Errorf("odd-length frame kept %d bytes, want drop", len(out.Data))
	}
}

func TestPCM16ToFloat32(t *testing.T) {
	pcm := samplesToBytes([]int16{0, 32767, -32768, 16384})
	got := audio.PCM16ToFloat32(pcm)
	want := []float32{0, 32767.0 / 32768.0, -1, 0.5}
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestInt16BytesRoundTrip(t *testing.T) {
	in := []int16{0, 1, -1, 32767, -32768}
	got := audio.BytesToInt16s(audio.Int16sToBytes(in))
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], in[i])
		}
	}
}
