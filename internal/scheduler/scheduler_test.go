package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddJob(t *testing.T) {
	m := New()
	require.NoError(t, m.AddJob("0 2 * * *", "nightly-ingest", func() {}))
	assert.Equal(t, 1, m.Jobs())
}

func TestAddJob_InvalidSpec(t *testing.T) {
	m := New()
	err := m.AddJob("not a cron spec", "broken", func() {})
	assert.Error(t, err)
	assert.Equal(t, 0, m.Jobs())
}

func TestStartStop(t *testing.T) {
	m := New()
	require.NoError(t, m.AddJob("* * * * *", "noop", func() {}))
	m.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	m.Stop(ctx)
}
