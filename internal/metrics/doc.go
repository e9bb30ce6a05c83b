// Package metrics records build cycle observations.
//
// Components receive a Recorder and default to NoopRecorder, so collection
// needs no nil checks at call sites:
//
//	type Cycle struct {
//	    recorder metrics.Recorder
//	}
//
// When monitoring is enabled the CLI swaps in a PrometheusRecorder and
// exposes its registry through HTTPHandler on the debug server.
package metrics
