package proxy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hosts(t *testing.T, p Func, n int) []string {
	t.Helper()
	var out []string
	for i := 0; i < n; i++ {
		u, err := p(nil)
		require.NoError(t, err)
		if u == nil {
			out = append(out, Direct)
			continue
		}
		out = append(out, u.Host)
	}
	return out
}

func TestRoundRobinSwitcher(t *testing.T) {
	p, err := RoundRobinSwitcher("http://a:8080", "::bad", "ftp://files:21", "socks5://b:1080")
	require.NoError(t, err)
	assert.Equal(t, []string{"a:8080", "b:1080", "a:8080", "b:1080"}, hosts(t, p, 4))
}

func TestRoundRobinSwitcherDirect(t *testing.T) {
	p, err := RoundRobinSwitcher("http://a:8080", "DIRECT")
	require.NoError(t, err)
	assert.Equal(t, []string{"a:8080", Direct, "a:8080"}, hosts(t, p, 3))
}

func TestRoundRobinSwitcherErrors(t *testing.T) {
	_, err := RoundRobinSwitcher()
	assert.Error(t, err)
	_, err = RoundRobinSwitcher("not a url", "ftp://files:21")
	assert.Error(t, err)
}
