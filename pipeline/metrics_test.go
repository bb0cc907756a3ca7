package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	restpf "github.com/guxiaodai/restpf"
	"github.com/guxiaodai/restpf/callback"
	"github.com/guxiaodai/restpf/pipeline"
)

func TestMetrics_RecordsRunsAndCallbacks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := pipeline.NewMetrics(reg, "")
	require.NoError(t, err)

	res := testResource(t)
	require.NoError(t, res.Attributes.Field("foo").GET(func(context.Context, *callback.Context) (any, error) {
		return int64(1), nil
	}))
	require.NoError(t, res.Attributes.Field("bar").GET(func(context.Context, *callback.Context) (any, error) {
		return nil, errors.New("nope")
	}))

	p := forMethod(t, restpf.GET, pipeline.WithMetrics(m))
	_, err = p.Run(context.Background(), res, pipeline.Raw{ResourceID: int64(1)})
	require.Error(t, err)
	_, err = p.Run(context.Background(), res, pipeline.Raw{})
	require.Error(t, err)

	count, err := testutil.GatherAndCount(reg, "restpf_pipeline_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = testutil.GatherAndCount(reg, "restpf_callbacks_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(reg, "restpf_pipeline_phase_duration_seconds")
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := pipeline.NewMetrics(reg, "x")
	require.NoError(t, err)
	_, err = pipeline.NewMetrics(reg, "x")
	assert.Error(t, err)
}

func TestNilMetricsIsSafe(t *testing.T) {
	res := testResource(t)
	p := forMethod(t, restpf.GET, pipeline.WithMetrics(nil))
	_, err := p.Run(context.Background(), res, pipeline.Raw{ResourceID: int64(1)})
	assert.NoError(t, err)
}
