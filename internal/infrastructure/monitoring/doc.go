/*
Package monitoring exports the shell's Prometheus metrics under the oopis_
prefix.

*Metrics satisfies session.Recorder, so the executor and session packages
report commands, pipelines, background jobs and snapshot saves without
importing Prometheus. The HTTP and WebSocket layers record their own
traffic.

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetricsWith(reg)
	router.Use(monitoring.Middleware(metrics, "/metrics"))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

Snapshot reads the counters back for the JSON metrics view.
*/
package monitoring
