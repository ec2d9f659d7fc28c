package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressionCodec(t *testing.T) {
	for name, want := range map[string]kafka.Compression{
		"":       kafka.Gzip,
		"gzip":   kafka.Gzip,
		"snappy": kafka.Snappy,
		"lz4":    kafka.Lz4,
		"zstd":   kafka.Zstd,
		"none":   0,
	} {
		got, err := compressionCodec(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := compressionCodec("brotli")
	assert.Error(t, err)
}

func TestEncodePassesBytesThrough(t *testing.T) {
	b, err := encode([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(b))

	b, err = encode(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(b))

	_, err = encode(func() {})
	assert.Error(t, err)
}

func TestNewProducerValidates(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)

	_, err = NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("brotli"))
	assert.Error(t, err)

	p, err := NewProducer(WithBrokers([]string{"localhost:9092"}), WithCompression("none"))
	require.NoError(t, err)
	require.NoError(t, p.Close())
}
