package logging

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestFromContextFallsBackToStandardLogger(t *testing.T) {
	e := FromContext(context.Background())
	assert.Equal(t, logrus.StandardLogger(), e.Logger)
	assert.Empty(t, e.Data)
}

func TestToContextRoundTrip(t *testing.T) {
	entry := logrus.WithField(CorrelationIDField, "abc")
	ctx := ToContext(context.Background(), entry)
	assert.Equal(t, "abc", FromContext(ctx).Data[CorrelationIDField])
}

func TestInitParsesLevel(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)
	Init("debug", "json")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	Init("nonsense", "text")
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
}

func TestCorrelationID(t *testing.T) {
	assert.Empty(t, CorrelationIDFromContext(context.Background()))
	ctx := ContextWithCorrelationID(context.Background(), "req-1")
	assert.Equal(t, "req-1", CorrelationIDFromContext(ctx))
}
