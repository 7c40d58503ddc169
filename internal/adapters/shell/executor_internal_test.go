package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveEnvironment(t *testing.T) {
	tests := []struct {
		name      string
		sysEnv    []string
		overrides []string
		expected  []string
	}{
		{
			name:     "inherits system environment",
			sysEnv:   []string{"USER=test", "PATH=/bin"},
			expected: []string{"PATH=/bin", "USER=test"},
		},
		{
			name:      "overrides win",
			sysEnv:    []string{"USER=test", "PATH=/bin"},
			overrides: []string{"USER=builder", "BR2_JLEVEL=4"},
			expected:  []string{"BR2_JLEVEL=4", "PATH=/bin", "USER=builder"},
		},
		{
			name:     "malformed entries dropped",
			sysEnv:   []string{"NOEQUALS", "=empty", "A=1=2"},
			expected: []string{"A=1=2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveEnvironment(tt.sysEnv, tt.overrides))
		})
	}
}

func TestLineWriter(t *testing.T) {
	var lines []string
	w := &lineWriter{onLine: func(s string) { lines = append(lines, s) }}

	_, _ = w.Write([]byte("one\r\ntw"))
	_, _ = w.Write([]byte("o\n\nthree"))
	assert.Equal(t, []string{"one", "two", ""}, lines)

	_ = w.Close()
	assert.Equal(t, []string{"one", "two", "", "three"}, lines)
}

func TestLookPath(t *testing.T) {
	_, err := lookPath("sh", nil)
	assert.Error(t, err)

	p, err := lookPath("sh", []string{"PATH=/nonexistent:/bin:/usr/bin"})
	assert.NoError(t, err)
	assert.NotEmpty(t, p)
}
