package main

import (
	"testing"
	"time"

	"github.com/richxcame/cyber-patrol/pkg/config"
	"github.com/stretchr/testify/assert"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{CORSOrigins: "https://dashboard.goapolice.gov.in, http://localhost:3000"},
		Patrol: config.PatrolConfig{
			Platforms:      []string{"facebook", "domains", "telegram"},
			WatchDomains:   []string{"goa-hotel-deals.xyz"},
			ScrapeInterval: time.Minute,
			BatchSize:      25,
		},
	}
}

func TestAllowedOrigins(t *testing.T) {
	assert.Equal(t, []string{"https://dashboard.goapolice.gov.in", "http://localhost:3000"}, allowedOrigins(testConfig()))

	cfg := testConfig()
	cfg.Server.CORSOrigins = " , "
	assert.Empty(t, allowedOrigins(cfg))
}

func TestCORSConfig(t *testing.T) {
	c := corsConfig(testConfig())
	assert.False(t, c.AllowAllOrigins)
	assert.Len(t, c.AllowOrigins, 2)
	assert.Contains(t, c.ExposeHeaders, "X-Request-ID")

	cfg := testConfig()
	cfg.Server.CORSOrigins = "*"
	assert.True(t, corsConfig(cfg).AllowAllOrigins)
}

func TestBuildCollectors_WithoutBusKeepsDomainWatchOnly(t *testing.T) {
	collectors := buildCollectors(testConfig(), nil)

	assert.Len(t, collectors, 1)
	assert.Contains(t, collectors, "domains")
}

func TestSessionPolicy_BeforeManagerExists(t *testing.T) {
	p := &sessionPolicy{}
	assert.False(t, p.RealTimeEnabled("facebook"))
}

func TestBuildScoringEngine_Defaults(t *testing.T) {
	engine, classifier := buildScoringEngine(&config.Config{})

	assert.NotNil(t, engine)
	assert.Nil(t, classifier)
	assert.Equal(t, "not_available", engine.ClassifierHealth())
}
