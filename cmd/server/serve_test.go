package main

import (
	"testing"

	"github.com/localnerve/eventsdb/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestPublicHost(t *testing.T) {
	cfg := &config.Config{Env: config.EnvDevelopment, Port: "3000", AllowedHosts: []string{"*"}}
	protocol, host := publicHost(cfg)
	assert.Equal(t, "http", protocol)
	assert.Equal(t, "localhost:3000", host)

	cfg = &config.Config{Env: config.EnvProduction, Port: "3000", AllowedHosts: []string{".example.org", "www.example.org"}}
	protocol, host = publicHost(cfg)
	assert.Equal(t, "https", protocol)
	assert.Equal(t, "www.example.org", host)
}
