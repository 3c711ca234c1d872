package kafka_config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, "k1:9092, k2:9092")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, DefaultProducerCompression, cfg.ProducerCompression)
	assert.Equal(t, "staymate.relay", cfg.GroupID("relay"))
}

func TestLoad_InvalidCompression(t *testing.T) {
	t.Setenv(EnvKafkaProducerCompression, "brotli")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ProducerCompression")
}

func TestValidate_AggregatesErrors(t *testing.T) {
	cfg := &Config{Brokers: []string{""}, ProducerCompression: "none", ProducerRequireAcks: 5}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broker 0 cannot be empty")
	assert.Contains(t, err.Error(), "ProducerRequireAcks")
	assert.Contains(t, err.Error(), "ConsumerGroupPrefix")
}
