package pipeline_test

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	restpf "github.com/guxiaodai/restpf"
	"github.com/guxiaodai/restpf/callback"
	g "github.com/guxiaodai/restpf/dsl"
	"github.com/guxiaodai/restpf/pipeline"
	"github.com/guxiaodai/restpf/resource"
	"github.com/guxiaodai/restpf/scheduler"
)

func testResource(t *testing.T) *resource.Resource {
	t.Helper()
	res, err := resource.New("test", g.Object().
		Field("foo", g.Integer()).
		Field("bar", g.String()).
		MustBuild(), nil)
	require.NoError(t, err)
	return res
}

func forMethod(t *testing.T, m restpf.Method, opts ...pipeline.Option) *pipeline.Pipeline {
	t.Helper()
	p, err := pipeline.ForMethod(m, opts...)
	require.NoError(t, err)
	return p
}

func TestGET_EndToEnd(t *testing.T) {
	res := testResource(t)
	require.NoError(t, res.Attributes.Field("foo").GET(func(_ context.Context, c *callback.Context) (any, error) {
		id, _ := callback.Lookup[int64](c, pipeline.BindResourceID)
		return id * 10, nil
	}))
	require.NoError(t, res.Attributes.Field("bar").GET(func(_ context.Context, c *callback.Context) (any, error) {
		id, _ := callback.Lookup[int64](c, pipeline.BindResourceID)
		return strconv.FormatInt(id, 10), nil
	}))

	out, err := forMethod(t, restpf.GET).Run(context.Background(), res, pipeline.Raw{ResourceID: int64(42)})
	require.NoError(t, err)
	assert.Equal(t, pipeline.PhaseDone, out.Phase)
	assert.Equal(t, 2, out.Executed)
	assert.Equal(t, 1, out.Batches)
	_, err = uuid.Parse(out.RequestID)
	assert.NoError(t, err, "request id %q", out.RequestID)

	body, err := json.Marshal(out.Document)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":42,"type":"test","attributes":{"foo":{"type":"integer","value":420},"bar":{"type":"string","value":"42"}},"relationships":{}}`,
		string(body))
}

func TestGET_MissingIDFailsInput(t *testing.T) {
	res := testResource(t)
	var calls atomic.Int32
	require.NoError(t, res.Attributes.Field("foo").GET(func(context.Context, *callback.Context) (any, error) {
		calls.Add(1)
		return int64(1), nil
	}))

	out, err := forMethod(t, restpf.GET).Run(context.Background(), res, pipeline.Raw{})
	require.Error(t, err)
	assert.ErrorIs(t, err, restpf.ErrValidation)
	var verr *restpf.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "input", verr.Stage)
	assert.Equal(t, pipeline.SlotResourceID, verr.Collection)
	assert.True(t, verr.Issues.HasCode(restpf.CodeRequired))
	assert.Equal(t, pipeline.PhaseFailed, out.Phase)
	assert.Equal(t, pipeline.PhaseValidatingInput, out.FailedIn)
	assert.Zero(t, calls.Load())
}

func TestPOST_InvalidBodyRunsNothing(t *testing.T) {
	res := testResource(t)
	var calls atomic.Int32
	require.NoError(t, res.Attributes.Field("foo").POST(func(context.Context, *callback.Context) (any, error) {
		calls.Add(1)
		return nil, nil
	}))

	_, err := forMethod(t, restpf.POST).Run(context.Background(), res, pipeline.Raw{
		Attributes: map[string]any{"foo": "not a number", "bar": "x"},
	})
	var verr *restpf.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, pipeline.SlotAttributes, verr.Collection)
	assert.True(t, verr.Issues.HasCode(restpf.CodeInvalidType))
	assert.Zero(t, calls.Load())
}

func TestPOST_PublishesID(t *testing.T) {
	res := testResource(t)
	var seen atomic.Value
	require.NoError(t, res.Attributes.Field("foo").POST(func(_ context.Context, c *callback.Context) (any, error) {
		v, _ := c.LeafValue()
		seen.Store(v)
		return nil, c.Publish(pipeline.BindResourceID, int64(7))
	}))
	require.NoError(t, res.AfterAll(restpf.POST, func(_ context.Context, c *callback.Context) (any, error) {
		id, ok := c.Value(pipeline.BindResourceID)
		if !ok || id != int64(7) {
			return nil, errors.New("id not visible after the creating batch")
		}
		return nil, nil
	}))

	out, err := forMethod(t, restpf.POST).Run(context.Background(), res, pipeline.Raw{
		Attributes: map[string]any{"foo": json.Number("3"), "bar": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), seen.Load())
	assert.Equal(t, pipeline.Document{"id": int64(7), "type": "test"}, out.Document)
}

func TestPOST_WithoutPublishedIDHasNoDocument(t *testing.T) {
	res := testResource(t)
	out, err := forMethod(t, restpf.POST).Run(context.Background(), res, pipeline.Raw{
		Attributes: map[string]any{"foo": int64(1), "bar": "x"},
	})
	require.NoError(t, err)
	assert.Nil(t, out.Document)
}

func TestPOST_RejectsID(t *testing.T) {
	res := testResource(t)
	_, err := forMethod(t, restpf.POST).Run(context.Background(), res, pipeline.Raw{
		ResourceID: int64(1),
		Attributes: map[string]any{"foo": int64(1), "bar": "x"},
	})
	var verr *restpf.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, pipeline.SlotResourceID, verr.Collection)
	assert.True(t, verr.Issues.HasCode(restpf.CodeProhibited))
}

func TestPATCH_SelectsPresentFieldsOnly(t *testing.T) {
	res := testResource(t)
	var foo, bar atomic.Int32
	require.NoError(t, res.Attributes.Field("foo").PATCH(func(context.Context, *callback.Context) (any, error) {
		foo.Add(1)
		return nil, nil
	}))
	require.NoError(t, res.Attributes.Field("bar").PATCH(func(context.Context, *callback.Context) (any, error) {
		bar.Add(1)
		return nil, nil
	}))

	out, err := forMethod(t, restpf.PATCH).Run(context.Background(), res, pipeline.Raw{
		ResourceID: int64(1),
		Attributes: map[string]any{"bar": "y"},
	})
	require.NoError(t, err)
	assert.Nil(t, out.Document)
	assert.Zero(t, foo.Load())
	assert.Equal(t, int32(1), bar.Load())
}

func TestDELETE_BeforeAllHook(t *testing.T) {
	res := testResource(t)
	var got atomic.Value
	require.NoError(t, res.BeforeAll(restpf.DELETE, func(_ context.Context, c *callback.Context) (any, error) {
		v, _ := c.Value(pipeline.BindResourceID)
		got.Store(v)
		return true, nil
	}))

	out, err := forMethod(t, restpf.DELETE).Run(context.Background(), res, pipeline.Raw{ResourceID: int64(42)})
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.Load())
	assert.Nil(t, out.Document)
	assert.Nil(t, out.Merged.Attributes)
}

func TestHooksFrameCollections(t *testing.T) {
	res := testResource(t)
	var order []string
	record := func(name string) callback.Handler {
		return func(context.Context, *callback.Context) (any, error) {
			order = append(order, name)
			return nil, nil
		}
	}
	require.NoError(t, res.AfterAll(restpf.GET, record("after")))
	require.NoError(t, res.BeforeAll(restpf.GET, record("before")))
	require.NoError(t, res.Attributes.Field("foo").GET(record("foo")))

	out, err := forMethod(t, restpf.GET, pipeline.WithMaxConcurrency(1)).
		Run(context.Background(), res, pipeline.Raw{ResourceID: int64(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"before", "foo", "after"}, order)
	assert.Equal(t, 3, out.Batches)
}

func TestHooksAfterAfterAllStayLast(t *testing.T) {
	res := testResource(t)
	var order []string
	record := func(name string) callback.Handler {
		return func(context.Context, *callback.Context) (any, error) {
			order = append(order, name)
			return nil, nil
		}
	}
	require.NoError(t, res.AfterAll(restpf.GET, record("after")))
	require.NoError(t, res.SpecialHooks.At().GET(record("final"), callback.AfterAll(), callback.RunAfter(resource.HookAfterAll)))
	require.NoError(t, res.Attributes.Field("foo").GET(record("foo")))

	out, err := forMethod(t, restpf.GET, pipeline.WithMaxConcurrency(1)).
		Run(context.Background(), res, pipeline.Raw{ResourceID: int64(1)})
	require.NoError(t, err)
	assert.Equal(t, []string{"foo", "after", "final"}, order)
	assert.Equal(t, 3, out.Batches)
}

func TestHookRunningAfterAfterAllIsACycle(t *testing.T) {
	res := testResource(t)
	var calls atomic.Int32
	h := func(context.Context, *callback.Context) (any, error) {
		calls.Add(1)
		return nil, nil
	}
	require.NoError(t, res.AfterAll(restpf.GET, h))
	require.NoError(t, res.SpecialHooks.At().GET(h, callback.RunAfter(resource.HookAfterAll)))

	_, err := forMethod(t, restpf.GET).Run(context.Background(), res, pipeline.Raw{ResourceID: int64(1)})
	assert.ErrorIs(t, err, scheduler.ErrCycle)
	assert.Zero(t, calls.Load())
}

func TestRunAfterChain(t *testing.T) {
	res := testResource(t)
	require.NoError(t, res.Attributes.Field("foo").GET(func(_ context.Context, c *callback.Context) (any, error) {
		return int64(5), c.Publish("foo", int64(5))
	}))
	require.NoError(t, res.Attributes.Field("bar").GET(func(_ context.Context, c *callback.Context) (any, error) {
		v, ok := callback.Lookup[int64](c, "foo")
		if !ok {
			return nil, errors.New("foo not published")
		}
		return strconv.FormatInt(v, 10), nil
	}, callback.RunAfter("foo")))

	out, err := forMethod(t, restpf.GET).Run(context.Background(), res, pipeline.Raw{ResourceID: int64(1)})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Batches)
	assert.Equal(t, map[string]any{"foo": int64(5), "bar": "5"}, out.Merged.Attributes)
}

func TestSameBatchDoesNotSeePublications(t *testing.T) {
	res := testResource(t)
	require.NoError(t, res.Attributes.Field("foo").GET(func(_ context.Context, c *callback.Context) (any, error) {
		return nil, c.Publish("x", 1)
	}))
	require.NoError(t, res.Attributes.Field("bar").GET(func(_ context.Context, c *callback.Context) (any, error) {
		if _, ok := c.Value("x"); ok {
			return nil, errors.New("sibling publication visible")
		}
		return nil, nil
	}))
	_, err := forMethod(t, restpf.GET).Run(context.Background(), res, pipeline.Raw{ResourceID: int64(1)})
	require.NoError(t, err)
}

func TestSchedulingErrorsRunNothing(t *testing.T) {
	res := testResource(t)
	var calls atomic.Int32
	h := func(context.Context, *callback.Context) (any, error) {
		calls.Add(1)
		return nil, nil
	}
	require.NoError(t, res.Attributes.Field("foo").GET(h, callback.RunAfter("bar")))
	require.NoError(t, res.Attributes.Field("bar").GET(h, callback.RunAfter("foo")))

	out, err := forMethod(t, restpf.GET).Run(context.Background(), res, pipeline.Raw{ResourceID: int64(1)})
	assert.ErrorIs(t, err, restpf.ErrScheduling)
	assert.ErrorIs(t, err, scheduler.ErrCycle)
	assert.Equal(t, pipeline.PhaseScheduling, out.FailedIn)
	assert.Zero(t, out.Executed)
	assert.Zero(t, calls.Load())
}

func TestCallbackErrorStopsLaterBatches(t *testing.T) {
	res := testResource(t)
	boom := errors.New("boom")
	var sibling, later atomic.Int32
	require.NoError(t, res.Attributes.Field("foo").GET(func(context.Context, *callback.Context) (any, error) {
		return nil, boom
	}))
	require.NoError(t, res.Attributes.Field("bar").GET(func(context.Context, *callback.Context) (any, error) {
		time.Sleep(10 * time.Millisecond)
		sibling.Add(1)
		return nil, nil
	}))
	require.NoError(t, res.AfterAll(restpf.GET, func(context.Context, *callback.Context) (any, error) {
		later.Add(1)
		return nil, nil
	}))

	out, err := forMethod(t, restpf.GET).Run(context.Background(), res, pipeline.Raw{ResourceID: int64(1)})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, restpf.ErrCallback)
	var cerr *restpf.CallbackError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, []string{"foo"}, cerr.Path)
	assert.Equal(t, int32(1), sibling.Load())
	assert.Zero(t, later.Load())
	assert.Equal(t, pipeline.PhaseExecuting, out.FailedIn)
}

func TestCallbackPanicBecomesError(t *testing.T) {
	res := testResource(t)
	require.NoError(t, res.Attributes.Field("foo").GET(func(context.Context, *callback.Context) (any, error) {
		panic("bad handler")
	}))
	_, err := forMethod(t, restpf.GET).Run(context.Background(), res, pipeline.Raw{ResourceID: int64(1)})
	assert.ErrorIs(t, err, restpf.ErrCallback)
	assert.Contains(t, err.Error(), "bad handler")
}

func TestCallbackTimeout(t *testing.T) {
	res := testResource(t)
	require.NoError(t, res.Attributes.Field("foo").GET(func(ctx context.Context, _ *callback.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	_, err := forMethod(t, restpf.GET, pipeline.WithCallbackTimeout(5*time.Millisecond)).
		Run(context.Background(), res, pipeline.Raw{ResourceID: int64(1)})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCanceledContextStopsBeforeBatches(t *testing.T) {
	res := testResource(t)
	var calls atomic.Int32
	require.NoError(t, res.Attributes.Field("foo").GET(func(context.Context, *callback.Context) (any, error) {
		calls.Add(1)
		return nil, nil
	}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := forMethod(t, restpf.GET).Run(ctx, res, pipeline.Raw{ResourceID: int64(1)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestOutputValidationFailure(t *testing.T) {
	res := testResource(t)
	require.NoError(t, res.Attributes.Field("foo").GET(func(context.Context, *callback.Context) (any, error) {
		return "not an integer", nil
	}))
	out, err := forMethod(t, restpf.GET).Run(context.Background(), res, pipeline.Raw{ResourceID: int64(1)})
	var verr *restpf.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "output", verr.Stage)
	assert.Equal(t, pipeline.PhaseValidatingOutput, out.FailedIn)
}

func TestRootCallbackMergesWithFieldCallbacks(t *testing.T) {
	res := testResource(t)
	require.NoError(t, res.Attributes.At().GET(func(context.Context, *callback.Context) (any, error) {
		return map[string]any{"foo": int64(1), "bar": "root"}, nil
	}))
	require.NoError(t, res.Attributes.Field("bar").GET(func(context.Context, *callback.Context) (any, error) {
		return "field", nil
	}))
	out, err := forMethod(t, restpf.GET).Run(context.Background(), res, pipeline.Raw{ResourceID: int64(1)})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"foo": int64(1), "bar": "field"}, out.Merged.Attributes)
}

func TestForMethodRejectsOPTIONS(t *testing.T) {
	_, err := pipeline.ForMethod(restpf.OPTIONS)
	assert.ErrorIs(t, err, pipeline.ErrUnsupportedMethod)
}

func TestNewRejectsBadArguments(t *testing.T) {
	_, err := pipeline.New("FETCH", pipeline.SingleBuilder{}, pipeline.EmptyGenerator{})
	assert.Error(t, err)
	_, err = pipeline.New(restpf.GET, nil, pipeline.EmptyGenerator{})
	assert.Error(t, err)

	p := forMethod(t, restpf.GET)
	_, err = p.Run(context.Background(), nil, pipeline.Raw{})
	assert.ErrorIs(t, err, pipeline.ErrNilResource)
}
