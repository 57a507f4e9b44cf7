package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "OG", cfg.OrderPrefix)
	assert.Equal(t, 3*time.Second, cfg.LockTimeout)
	assert.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 4, cfg.NotifierWorkers)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ORDER_PREFIX", "ZZ")
	t.Setenv("CHECKOUT_LOCK_TIMEOUT", "500ms")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092,")
	t.Setenv("TELEGRAM_ADMIN_CHAT_IDS", "100,200")

	cfg := Load()
	assert.Equal(t, "ZZ", cfg.OrderPrefix)
	assert.Equal(t, 500*time.Millisecond, cfg.LockTimeout)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []string{"100", "200"}, cfg.TelegramAdmins)
}

func TestBadValuesFallBack(t *testing.T) {
	t.Setenv("CHECKOUT_LOCK_TIMEOUT", "soon")
	t.Setenv("NOTIFIER_WORKERS", "many")

	cfg := Load()
	assert.Equal(t, 3*time.Second, cfg.LockTimeout)
	assert.Equal(t, 4, cfg.NotifierWorkers)
}
