package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KNICEX/oi-radar/internal/service/radar"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func sampleAlert() radar.Alert {
	return radar.Alert{
		ID:         "0190f7a2-0000-7000-8000-000000000001",
		Symbol:     "BTCUSDT",
		CreatedAt:  time.UnixMilli(1709294470123).UTC(),
		Verdict:    radar.VerdictStrongAlert,
		Severity:   radar.SeverityHigh,
		Confidence: 0.8,
		Score:      0.7,
		Direction:  radar.Bullish,
		ScoreBundle: radar.ScoreBundle{
			VolumeRatio: 2.4,
			OIZScore:    5.1,
			Direction:   radar.Bullish,
			Samples:     60,
		},
	}
}

func TestKafkaNotifier_Notify(t *testing.T) {
	w := &fakeWriter{}
	n := newKafkaNotifier(w, "oi-radar.alerts")

	a := sampleAlert()
	require.NoError(t, n.Notify(context.Background(), a))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "BTCUSDT", string(msg.Key))
	assert.Equal(t, a.CreatedAt, msg.Time)
	decoded, err := radar.UnmarshalAlert(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, a, decoded)
	assert.Equal(t, "STRONG_ALERT", string(msg.Headers[1].Value))

	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifier_WriteError(t *testing.T) {
	n := newKafkaNotifier(&fakeWriter{err: errors.New("leader not available")}, "t")
	err := n.Notify(context.Background(), sampleAlert())
	assert.ErrorContains(t, err, "leader not available")
}

func TestNewKafkaNotifier_Validation(t *testing.T) {
	_, err := NewKafkaNotifier(KafkaConfig{Topic: "t"})
	assert.Error(t, err)
	_, err = NewKafkaNotifier(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)

	n, err := NewKafkaNotifier(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "t"})
	require.NoError(t, err)
	assert.NoError(t, n.Close())
}

func TestLogNotifier(t *testing.T) {
	assert.NoError(t, NewLogNotifier(zerolog.Nop()).Notify(context.Background(), sampleAlert()))
}
