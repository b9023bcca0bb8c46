package ipchecker

import (
	"net"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, err := New("not a cidr")
	assert.Error(t, err)

	checker, err := New("")
	require.NoError(t, err)
	assert.False(t, checker.Check(net.ParseIP("10.0.0.1")), "empty subnet must reject everything")
}

func TestCheck(t *testing.T) {
	checker, err := New("10.0.0.0/8")
	require.NoError(t, err)

	assert.True(t, checker.Check(net.ParseIP("10.1.2.3")))
	assert.False(t, checker.Check(net.ParseIP("192.168.1.1")))
	assert.False(t, checker.Check(nil))
}

func TestGetClientIP(t *testing.T) {
	checker, err := New("10.0.0.0/8")
	require.NoError(t, err)

	testCases := []struct {
		name       string
		realIP     string
		forwarded  string
		remoteAddr string
		expected   string
	}{
		{
			name:       "x_real_ip_wins",
			realIP:     "10.1.1.1",
			forwarded:  "10.2.2.2",
			remoteAddr: "10.3.3.3:1234",
			expected:   "10.1.1.1",
		},
		{
			name:       "first_forwarded_entry",
			forwarded:  "10.2.2.2, 192.168.1.1",
			remoteAddr: "10.3.3.3:1234",
			expected:   "10.2.2.2",
		},
		{
			name:       "remote_addr_fallback",
			remoteAddr: "10.3.3.3:1234",
			expected:   "10.3.3.3",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			request := httptest.NewRequest("GET", "/api/internal/stats", nil)
			request.RemoteAddr = testCase.remoteAddr
			if testCase.realIP != "" {
				request.Header.Set("X-Real-IP", testCase.realIP)
			}
			if testCase.forwarded != "" {
				request.Header.Set("X-Forwarded-For", testCase.forwarded)
			}

			ip, err := checker.GetClientIP(request)
			require.NoError(t, err)
			assert.Equal(t, testCase.expected, ip.String())
		})
	}

	t.Run("unparsable_remote_addr", func(t *testing.T) {
		request := httptest.NewRequest("GET", "/api/internal/stats", nil)
		request.RemoteAddr = "not an address"

		_, err := checker.GetClientIP(request)
		assert.Error(t, err)
	})
}
