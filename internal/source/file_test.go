package source

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDump(t *testing.T, blocks int, tail int) string {
	t.Helper()
	const blockSize = 256
	path := filepath.Join(t.TempDir(), "dump.bin")
	raw := make([]byte, blocks*2*blockSize+tail)
	for i := range raw {
		raw[i] = byte(128 + i%7)
	}
	require.NoError(t, os.WriteFile(path, raw, 0o644))
	return path
}

// Replay must deliver every full block in order and never process the
// partial tail; end of file shuts the mailbox down.
func TestFileSourceReplay(t *testing.T) {
	const blockSize = 256
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	path := writeDump(t, 3, 100)
	src, err := NewFileSource(path, blockSize, logger)
	require.NoError(t, err)
	defer src.Close()

	m := NewMailbox(NewBlock(blockSize, 8), logger)

	var indices []uint64
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			blk, ok := m.Acquire()
			if !ok {
				return
			}
			indices = append(indices, blk.Index)
			m.Release()
		}
	}()

	src.Run(m)
	<-done

	assert.Equal(t, []uint64{0, 1, 2}, indices)
	assert.True(t, m.Exiting())
	assert.Equal(t, uint64(0), m.Overflows(), "demand-paced replay never overflows")
}

func TestFileSourceMissing(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	_, err := NewFileSource(filepath.Join(t.TempDir(), "nope.bin"), 256, logger)
	assert.Error(t, err)
}

func TestBlockFill(t *testing.T) {
	b := NewBlock(4, 2)

	// Padding starts at the sentinel.
	assert.InDelta(t, 1.0, b.Re[4], 1e-6)
	assert.InDelta(t, 1.0, b.Im[5], 1e-6)

	b.Fill([]byte{128, 128, 0, 255, 200, 100, 128, 127}, 9)
	assert.Equal(t, uint64(9), b.Index)
	assert.InDelta(t, 0.0, b.Re[0], 1e-6)
	assert.InDelta(t, 0.0, b.Im[0], 1e-6)
	assert.InDelta(t, -128.0, b.Re[1], 1e-6)
	assert.InDelta(t, 127.0, b.Im[1], 1e-6)
	assert.InDelta(t, 72.0, b.Re[2], 1e-6)
	assert.InDelta(t, -28.0, b.Im[2], 1e-6)
	assert.InDelta(t, -1.0, b.Im[3], 1e-6)

	// The sentinel tail is untouched by a fill.
	assert.InDelta(t, 1.0, b.Re[4], 1e-6)
	assert.InDelta(t, 1.0, b.Im[5], 1e-6)
}
