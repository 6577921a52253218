package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestApplyPlatformDefaults(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		env  map[string]string
		want Config
	}{
		{
			name: "platform variables fill gaps",
			cfg:  Config{Addr: defaultAddr, RedisURL: "redis://localhost:6379/0"},
			env: map[string]string{
				"DATABASE_URL": "postgres://db/shop",
				"REDIS_URL":    "redis://cache:6379/1",
				"PORT":         "9000",
			},
			want: Config{Addr: "0.0.0.0:9000", DatabaseURL: "postgres://db/shop", RedisURL: "redis://cache:6379/1"},
		},
		{
			name: "explicit settings win",
			cfg:  Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://mine", RedisURL: "redis://mine"},
			env: map[string]string{
				"DATABASE_URL":   "postgres://platform",
				"REDIS_URL":      "redis://platform",
				"SHOP_REDIS_URL": "redis://mine",
				"PORT":           "9000",
			},
			want: Config{Addr: "127.0.0.1:7000", DatabaseURL: "postgres://mine", RedisURL: "redis://mine"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.applyPlatformDefaults(func(k string) string { return tt.env[k] })
			assert.Equal(t, tt.want, cfg)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	valid := Config{DatabaseURL: "postgres://db", RedisURL: "redis://cache"}
	assert.NoError(t, valid.validate())

	noDB := valid
	noDB.DatabaseURL = ""
	assert.ErrorContains(t, noDB.validate(), "database URL")

	noRedis := valid
	noRedis.RedisURL = ""
	assert.ErrorContains(t, noRedis.validate(), "redis URL")

	badTTL := valid
	badTTL.Cart.TTL = -time.Minute
	assert.ErrorContains(t, badTTL.validate(), "cart TTL")
}
