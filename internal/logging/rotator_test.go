package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRotatorWrites(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dir := t.TempDir()
	r, err := NewRotator(dir, true, logger)
	require.NoError(t, err)
	defer r.Close()

	w, err := r.Writer()
	require.NoError(t, err)
	fmt.Fprintln(w, "00000000796448.50: 0xabcdef, 0x88abcdef00000000000000;")

	require.NoError(t, r.Close())

	date := time.Now().UTC().Format("2006-01-02")
	data, err := os.ReadFile(filepath.Join(dir, "modesrx_"+date+".log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "0xabcdef")
}

func TestRotatorCreatesDirectory(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	dir := filepath.Join(t.TempDir(), "nested", "logs")
	r, err := NewRotator(dir, false, logger)
	require.NoError(t, err)
	defer r.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRotatorCompress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "old.log")
	require.NoError(t, os.WriteFile(path, []byte("line\n"), 0o644))

	require.NoError(t, compress(path))

	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "original must be removed")
	_, err = os.Stat(path + ".gz")
	assert.NoError(t, err)
}
