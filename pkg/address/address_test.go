package address

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in                            string
		node, process, pkg, publisher string
	}{
		{"alice@chat:chat:template.os", "alice", "chat", "chat", "template.os"},
		{"bob", "bob", "", "", ""},
		{"", "", "", "", ""},
		{"carol@chat", "carol", "chat", "", ""},
		{"dave@chat:chat", "dave", "chat", "chat", ""},
		{"@chat:chat:template.os", "", "chat", "chat", "template.os"},
		{"erin@a:b:c:d", "erin", "a", "b", "c"},
		{"frank@::", "frank", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			node, process, pkg, publisher := Parse(tt.in).Components()
			assert.Equal(t, tt.node, node)
			assert.Equal(t, tt.process, process)
			assert.Equal(t, tt.pkg, pkg)
			assert.Equal(t, tt.publisher, publisher)
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, s := range []string{"alice@chat:chat:template.os", "bob"} {
		assert.Equal(t, s, Parse(s).String())
	}
	assert.Equal(t, "bob@chat:chat:template.os", Parse("alice@chat:chat:template.os").WithNode("bob").String())
}

func TestJSONText(t *testing.T) {
	type wrap struct {
		Source Address `json:"source"`
	}
	b, err := json.Marshal(wrap{Source: New("alice", "chat", "chat", "template.os")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"alice@chat:chat:template.os"}`, string(b))

	var w wrap
	require.NoError(t, json.Unmarshal([]byte(`{"source":"bob@chat:chat:x.os"}`), &w))
	assert.Equal(t, "bob", w.Source.Node)
	assert.Equal(t, "x.os", w.Source.Process.Publisher)
}
