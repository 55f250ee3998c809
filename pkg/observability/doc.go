/*
Package observability turns engine lifecycle events into logs and Prometheus metrics.

Both are plain domain.LifecycleHooks; use Combine to register several at once:

	metrics, _ := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Combine(metrics.Hooks(), observability.LoggingHooks(logger))
	eng, _ := signoff.New(workflows, signoff.WithLifecycleHooks(hooks))
*/
package observability
