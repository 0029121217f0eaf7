package linkconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default("/dev/ttyS0", Transmitter, 9600)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultRetransmissions, cfg.Retransmissions)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
}

func TestValidateRejectsBadFields(t *testing.T) {
	cfg := Default("", Transmitter, 9600)
	assert.Error(t, cfg.Validate())

	cfg = Default("/dev/ttyS0", Transmitter, 9600)
	cfg.Timeout = 0
	assert.Error(t, cfg.Validate())

	cfg = Default("/dev/ttyS0", Transmitter, 9600)
	cfg.MaxPayloadSize = 2000
	assert.Error(t, cfg.Validate())
}

func TestLoadFromINI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "link.ini")
	content := "[link]\ndevice = /dev/ttyS1\nrole = rx\nbaud = 115200\nretransmissions = 5\ntimeout_s = 2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyS1", cfg.Device)
	assert.Equal(t, Receiver, cfg.Role)
	assert.Equal(t, 115200, cfg.BaudRate)
	assert.Equal(t, 5, cfg.Retransmissions)
	assert.Equal(t, 2*time.Second, cfg.Timeout)
}
