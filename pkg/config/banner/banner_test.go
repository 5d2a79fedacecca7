package banner

import (
	"bytes"
	"testing"

	"chatd/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrint(t *testing.T) {
	cfg := &config.Config{Node: config.NodeConfig{Name: "alice"}, Peers: map[string]string{"bob": "http://127.0.0.1:8081"}}
	require.NoError(t, cfg.ValidateConfig())

	var buf bytes.Buffer
	Print(&buf, config.EffectiveConfigResult{Config: cfg, Sources: []string{"file"}}, "1.2.3")

	out := buf.String()
	assert.Contains(t, out, "Identity: alice@chat:chat:template.os")
	assert.Contains(t, out, "Listen:   0.0.0.0:8080")
	assert.Contains(t, out, "Config:   file")
	assert.Contains(t, out, "- Max envelope: 1.0 MB")
	assert.Contains(t, out, "- Rate limit: 50 rps, burst 100")
	assert.Contains(t, out, "- Peer bob: http://127.0.0.1:8081")
	assert.Contains(t, out, "- Probe: disabled")
}
