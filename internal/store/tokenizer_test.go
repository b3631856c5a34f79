package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCamelCase(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"getUserById", []string{"get", "User", "By", "Id"}},
		{"HTTPHandler", []string{"HTTP", "Handler"}},
		{"parseHTTPRequest", []string{"parse", "HTTP", "Request"}},
		{"simple", []string{"simple"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitCamelCase(tt.input))
		})
	}
}

func TestSplitCodeToken(t *testing.T) {
	assert.Equal(t, []string{"parse", "config", "file"}, SplitCodeToken("parse_config_file"))
	assert.Equal(t, []string{"get", "User", "Name"}, SplitCodeToken("getUser_Name"))
}

func TestTokenizeCode(t *testing.T) {
	tokens := TokenizeCode("func ParseConfigFile(p string) error")
	assert.Contains(t, tokens, "parse")
	assert.Contains(t, tokens, "config")
	assert.Contains(t, tokens, "file")
	assert.Contains(t, tokens, "string")
	// single-character tokens are dropped
	assert.NotContains(t, tokens, "p")
}

func TestBuildStopWordMap(t *testing.T) {
	m := BuildStopWordMap([]string{"The", "FUNC"})
	_, ok := m["the"]
	assert.True(t, ok)
	_, ok = m["func"]
	assert.True(t, ok)
	_, ok = m["other"]
	assert.False(t, ok)
}
