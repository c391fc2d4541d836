package audio

import (
	"encoding/binary"
	"fmt"
)

// DecodeWAV extracts the raw PCM payload and format from a canonical 44-byte
// header, 16-bit PCM WAV file. Used to load the wake acknowledgment cue.
func DecodeWAV(data []byte) ([]byte, Format, error) {
	if len(data) < 44 {
		return nil, Format{}, fmt.Errorf("audio: wav data too short: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, Format{}, fmt.Errorf("audio: not a RIFF/WAVE file")
	}
	if audioFormat := binary.LittleEndian.Uint16(data[20:22]); audioFormat != 1 {
		return nil, Format{}, fmt.Errorf("audio: unsupported wav audio format %d (want PCM)", audioFormat)
	}
	if bits := binary.LittleEndian.Uint16(data[34:36]); bits != 16 {
		return nil, Format{}, fmt.Errorf("audio: unsupported wav bit depth %d (want 16)", bits)
	}

	format := Format{
		SampleRate: int(binary.LittleEndian.Uint32(data[24:28])),
		Channels:   int(binary.LittleEndian.Uint16(data[22:24])),
	}

	dataSize := int(binary.LittleEndian.Uint32(data[40:44]))
	payload := data[44:]
	if dataSize > 0 && dataSize < len(payload) {
		payload = payload[:dataSize]
	}
	return payload, format, nil
}
