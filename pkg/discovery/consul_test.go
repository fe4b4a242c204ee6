package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placement-service/internal/config"
)

func testConfig(port string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           port,
			ServiceName:    "placement-service",
			ServiceAddress: "placement-service",
			ServiceID:      "placement-service-node1",
		},
		Consul: config.ConsulConfig{ConsulAddress: "127.0.0.1:8500"},
	}
}

func TestRegistration(t *testing.T) {
	sr, err := NewServiceRegistry(testConfig("9400"))
	require.NoError(t, err)

	reg, err := sr.registration()
	require.NoError(t, err)
	assert.Equal(t, "placement-service-node1-http", reg.ID)
	assert.Equal(t, 9400, reg.Port)
	assert.Equal(t, "http://placement-service:9400/health", reg.Check.HTTP)
	assert.Equal(t, "http", reg.Meta["protocol"])
}

func TestRegistrationRejectsBadPort(t *testing.T) {
	sr, err := NewServiceRegistry(testConfig("http"))
	require.NoError(t, err)

	_, err = sr.registration()
	assert.Error(t, err)
}
