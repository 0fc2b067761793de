package httpclient

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURLSchemes(t *testing.T) {
	c := New(5*time.Second, Options{})

	_, err := c.ValidateURL("ftp://example.com/data")
	assert.Error(t, err, "ftp must be rejected")

	_, err = c.ValidateURL("https://example.com/api")
	assert.NoError(t, err)
}

func TestValidateURLBlocksLocalhost(t *testing.T) {
	c := New(5*time.Second, Options{})

	for _, u := range []string{
		"http://localhost:8080/api",
		"http://store.localhost/api",
		"http://127.0.0.1/api",
		"http://10.1.2.3/api",
		"http://192.168.1.10/api",
	} {
		_, err := c.ValidateURL(u)
		assert.Error(t, err, "expected %s to be blocked", u)
	}
}

func TestValidateURLAllowsPrivateWhenDisabled(t *testing.T) {
	block := false
	c := New(5*time.Second, Options{BlockPrivateIP: &block})

	_, err := c.ValidateURL("http://localhost:8080/api")
	require.NoError(t, err, "private backends must be reachable when blocking is off")

	_, err = c.ValidateURL("http://192.168.1.10/api")
	require.NoError(t, err)
}

func TestValidateURLRejectsCredentialConfusion(t *testing.T) {
	c := New(5*time.Second, Options{})
	_, err := c.ValidateURL("http://evil.com@example.com/")
	assert.Error(t, err)
}

func TestIsPrivateIP(t *testing.T) {
	private := []string{"10.0.0.1", "172.16.5.5", "192.168.0.1", "127.0.0.1", "169.254.1.1", "::1", "fc00::1", "fe80::1"}
	for _, s := range private {
		assert.True(t, isPrivateIP(net.ParseIP(s)), "%s should be private", s)
	}

	public := []string{"8.8.8.8", "93.184.216.34", "2607:f8b0::1"}
	for _, s := range public {
		assert.False(t, isPrivateIP(net.ParseIP(s)), "%s should be public", s)
	}
}
