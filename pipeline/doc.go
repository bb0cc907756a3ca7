// Package pipeline drives one request through its phases: input states are
// built and validated, the callbacks of every collection are selected,
// scheduled and executed batch by batch, their results merged into output
// states, validated again and rendered as a document.
//
//	p, _ := pipeline.ForMethod(restpf.GET, pipeline.WithLogger(log))
//	res, err := p.Run(ctx, article, pipeline.Raw{ResourceID: int64(42)})
//
// Runs are traced with OpenTelemetry and, when WithMetrics is given,
// recorded as Prometheus metrics.
package pipeline
