package audio

import "time"

// Frame represents a single chunk of PCM audio flowing through the pipeline.
// Frames are received from the voice platform, downmixed and resampled,
// classified by VAD, and buffered by the phrase segmenter.
type Frame struct {
	// Data is little-endian 16-bit PCM. Sample rate and channel count are
	// described by the fields below.
	Data []byte

	// SampleRate in Hz (48000 for Discord Opus decode output, 16000 for the
	// recognizer input).
	SampleRate int

	// Channels: 1 for mono (recognizer input), 2 for stereo (Discord).
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Format describes the sample rate and channel count of an audio stream.
type Format struct {
	SampleRate int
	Channels   int
}

// Duration returns the playback duration of the frame.
func (f Frame) Duration() time.Duration {
	bytesPerSecond := f.SampleRate * f.Channels * 2
	if bytesPerSecond <= 0 {
		return 0
	}
	return time.Duration(len(f.Data)) * time.Second / time.Duration(bytesPerSecond)
}
