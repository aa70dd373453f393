// Package metrics provides counter and scheduler metrics for the tracker.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so metrics can be switched on without nil checks:
//
//	recorder := metrics.NewPrometheusRecorder(registry)
//	svc := tracker.New(store, tracker.WithRecorder(recorder))
//
// HTTPHandler serves the registry the recorder was registered with.
package metrics
