package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"
)

// PCMContentType marks raw SpeechFormat audio. It must be wrapped before it is served.
const PCMContentType = "audio/L16;rate=24000;channels=1"

// PCMFormat describes raw interleaved PCM samples.
type PCMFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// SpeechFormat is the format returned by Gemini speech models: 24 kHz, mono, 16-bit little-endian.
var SpeechFormat = PCMFormat{SampleRate: 24000, Channels: 1, BitDepth: 16}

// BytesPerFrame returns the size of one sample across all channels.
func (f PCMFormat) BytesPerFrame() int {
	return f.BitDepth / 8 * f.Channels
}

// Duration reports how long dataLen bytes of audio play for.
func (f PCMFormat) Duration(dataLen int) time.Duration {
	if f.SampleRate == 0 || f.BytesPerFrame() == 0 {
		return 0
	}
	frames := dataLen / f.BytesPerFrame()
	return time.Duration(frames) * time.Second / time.Duration(f.SampleRate)
}

// Validate checks that data is non-empty and frame aligned.
func (f PCMFormat) Validate(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyAudio
	}
	if n := f.BytesPerFrame(); n > 0 && len(data)%n != 0 {
		return fmt.Errorf("PCM data length %d is not aligned to %d-byte frames", len(data), n)
	}
	return nil
}

// Silence returns d worth of zeroed samples in SpeechFormat.
func Silence(d time.Duration) []byte {
	if d <= 0 {
		return []byte{}
	}
	frames := int(d * time.Duration(SpeechFormat.SampleRate) / time.Second)
	return make([]byte, frames*SpeechFormat.BytesPerFrame())
}

const wavHeaderSize = 44

// WrapPCMAsWAV prepends a canonical RIFF/WAVE header to raw PCM data.
func WrapPCMAsWAV(pcm []byte, f PCMFormat) []byte {
	byteRate := f.SampleRate * f.BytesPerFrame()

	var buf bytes.Buffer
	buf.Grow(wavHeaderSize + len(pcm))

	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(36+len(pcm)))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(f.Channels))
	binary.Write(&buf, binary.LittleEndian, uint32(f.SampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(f.BytesPerFrame()))
	binary.Write(&buf, binary.LittleEndian, uint16(f.BitDepth))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(len(pcm)))
	buf.Write(pcm)

	return buf.Bytes()
}
