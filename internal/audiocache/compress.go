package audiocache

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// minCompressBytes skips compression for clips too small to benefit
const minCompressBytes = 1024

// codec compresses audio at rest. A nil codec stores audio verbatim.
type codec struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func newCodec() (*codec, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &codec{encoder: encoder, decoder: decoder}, nil
}

// encode returns the bytes to store and whether they are compressed
func (c *codec) encode(audio []byte) ([]byte, bool) {
	if c == nil || len(audio) <= minCompressBytes {
		return audio, false
	}
	compressed := c.encoder.EncodeAll(audio, nil)
	// Only use compression if it actually reduces size
	if len(compressed) >= len(audio) {
		return audio, false
	}
	return compressed, true
}

func (c *codec) decode(data []byte, compressed bool) ([]byte, error) {
	if !compressed {
		return data, nil
	}
	if c == nil {
		// Entries written by a compressing instance are still readable.
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		defer decoder.Close()
		return decoder.DecodeAll(data, nil)
	}
	return c.decoder.DecodeAll(data, nil)
}

func (c *codec) close() {
	if c == nil {
		return
	}
	c.encoder.Close()
	c.decoder.Close()
}
