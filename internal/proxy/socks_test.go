package proxy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Direct(t *testing.T) {
	c, err := NewClient("", 0)
	require.NoError(t, err)
	assert.Nil(t, c.Transport)
	assert.Equal(t, DefaultTimeout, c.Timeout)
}

func TestNewClient_Socks(t *testing.T) {
	c, err := NewClient("127.0.0.1:8888", 0)
	require.NoError(t, err)

	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.NotNil(t, tr.DialContext)
}
