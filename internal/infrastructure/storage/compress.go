package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Compressed zstd-compresses values before handing them to the wrapped
// store. Values written without compression are still readable.
type Compressed struct {
	Store
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// NewCompressed wraps inner.
func NewCompressed(inner Store) (*Compressed, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &Compressed{Store: inner, enc: enc, dec: dec}, nil
}

// Get implements Store.
func (c *Compressed) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, found, err := c.Store.Get(ctx, key)
	if err != nil || !found {
		return data, found, err
	}
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, true, nil
	}
	plain, err := c.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, false, fmt.Errorf("decompress %s: %w", key, err)
	}
	return plain, true, nil
}

// Put implements Store.
func (c *Compressed) Put(ctx context.Context, key string, data []byte) error {
	return c.Store.Put(ctx, key, c.enc.EncodeAll(data, nil))
}

// Close implements Store.
func (c *Compressed) Close() error {
	c.enc.Close()
	c.dec.Close()
	return c.Store.Close()
}
