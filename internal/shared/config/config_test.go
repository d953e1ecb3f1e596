package config

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	assert.NoError(t, err)

	check.Equal(t, ":9000", cfg.HTTPAddr)
	check.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	check.Equal(t, "100", cfg.Auction.BidIncrement.String())
	check.Equal(t, 24*time.Hour, cfg.Auction.DefaultDuration)
	check.Equal(t, 60*time.Second, cfg.Scheduler.Interval)
	check.True(t, cfg.Scheduler.Enabled)
	check.Equal(t, "auction_events", cfg.Redis.Channel)
	check.Equal(t, "auction.winner", cfg.NATS.WinnerSubject)
}

func TestParse_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("AUCTION_BID_INCREMENT", "25.50")
	t.Setenv("SCHEDULER_INTERVAL", "5s")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PASSWORD", "pw")

	cfg, err := Parse()
	assert.NoError(t, err)
	check.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	check.Equal(t, "25.5", cfg.Auction.BidIncrement.String())
	check.Equal(t, 5*time.Second, cfg.Scheduler.Interval)
	check.Equal(t, "postgres://postgres:pw@db:5432/auctions?sslmode=disable", cfg.DB.PostgresDSN())
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{name: "unknown driver", key: "STORE_DRIVER", value: "mongo"},
		{name: "zero increment", key: "AUCTION_BID_INCREMENT", value: "0"},
		{name: "bad increment", key: "AUCTION_BID_INCREMENT", value: "ten"},
		{name: "sub-cent increment", key: "AUCTION_BID_INCREMENT", value: "0.005"},
		{name: "negative interval", key: "SCHEDULER_INTERVAL", value: "-1s"},
		{name: "zero duration", key: "AUCTION_DEFAULT_DURATION", value: "0s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Parse()
			check.Error(t, err)
		})
	}
}
