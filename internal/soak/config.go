// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package soak

import (
	"errors"
	"fmt"

	"code.hybscloud.com/ulfq"
)

// ErrInvalidConfig reports a Config that cannot be run.
var ErrInvalidConfig = errors.New("soak: invalid config")

// Config describes one soak round.
type Config struct {
	Producers int  // Goroutines enqueueing
	Consumers int  // Goroutines dequeueing
	Items     int  // Values per producer
	Blocking  bool // Consumers park on ulfq.Blocking instead of spinning
	ChunkSize int  // First arena chunk, see ulfq.Builder.ChunkSize
}

// DefaultConfig returns a small round suitable for a quick check.
func DefaultConfig() Config {
	return Config{
		Producers: 4,
		Consumers: 4,
		Items:     10000,
		ChunkSize: ulfq.DefaultChunkSize,
	}
}

// Validate reports the first field that is out of range.
func (c Config) Validate() error {
	switch {
	case c.Producers < 1:
		return fmt.Errorf("%w: producers must be >= 1, got %d", ErrInvalidConfig, c.Producers)
	case c.Consumers < 1:
		return fmt.Errorf("%w: consumers must be >= 1, got %d", ErrInvalidConfig, c.Consumers)
	case c.Items < 0:
		return fmt.Errorf("%w: items must be >= 0, got %d", ErrInvalidConfig, c.Items)
	case c.ChunkSize < 2:
		return fmt.Errorf("%w: chunk size must be >= 2, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	return nil
}

func (c Config) total() int {
	return c.Producers * c.Items
}
