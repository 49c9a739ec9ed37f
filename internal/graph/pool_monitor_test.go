package graph

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecommendedPoolSize(t *testing.T) {
	assert.Equal(t, 10, RecommendedPoolSize(0))
	assert.Equal(t, 10, RecommendedPoolSize(4))
	assert.Equal(t, 30, RecommendedPoolSize(20))
	assert.Equal(t, 100, RecommendedPoolSize(500))
}

func TestMonitorQueryExecution(t *testing.T) {
	tm := NewTimeoutMonitor()

	d, err := tm.MonitorQueryExecution(OpGraphRead, time.Minute, func() error { return nil })
	assert.NoError(t, err)
	assert.Less(t, d, time.Minute)

	boom := errors.New("boom")
	_, err = tm.MonitorQueryExecution(OpEntityMerge, time.Minute, func() error { return boom })
	assert.ErrorIs(t, err, boom)
}
