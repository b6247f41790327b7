package runtime

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vinodismyname/mcpsheets/config"
)

func TestControllerAcquireRelease(t *testing.T) {
	limits := NewLimits(1, 1)
	controller := NewController(limits)

	require.Equal(t, limits, controller.LimitsSnapshot())

	require.NoError(t, controller.AcquireRequest(context.Background()))
	controller.ReleaseRequest()

	require.NoError(t, controller.AcquireWorkbook(context.Background()))
	controller.ReleaseWorkbook()
}

func TestNewLimits_Defaults(t *testing.T) {
	l := NewLimits(0, -1)
	require.Equal(t, config.DefaultMaxConcurrentRequests, l.MaxConcurrentRequests)
	require.Equal(t, config.DefaultMaxOpenWorkbooks, l.MaxOpenWorkbooks)
	require.Equal(t, config.DefaultMaxFanout, l.MaxFanout)
	require.Equal(t, config.DefaultMaxGridCells, l.MaxGridCells)
}

func TestLimitsFromConfig(t *testing.T) {
	l := LimitsFromConfig(config.Default().Limits)
	require.Equal(t, NewLimits(0, 0), l)

	l = LimitsFromConfig(config.LimitsConfig{
		MaxConcurrentRequests: 3,
		MaxFanout:             7,
		MaxGridCells:          0,
		OperationTimeout:      time.Minute,
	})
	require.Equal(t, 3, l.MaxConcurrentRequests)
	require.Equal(t, config.DefaultMaxOpenWorkbooks, l.MaxOpenWorkbooks)
	require.Equal(t, 7, l.MaxFanout)
	require.Equal(t, 0, l.MaxGridCells)
	require.Equal(t, time.Minute, l.OperationTimeout)
	require.Equal(t, config.DefaultAcquireRequestTimeout, l.AcquireRequestTimeout)
}
