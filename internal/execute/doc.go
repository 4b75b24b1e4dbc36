// Package execute runs a compiled pipeline over the records of a data model.
//
// Records are streamed from a Source and evaluated by a bounded pool of
// workers. Results are reassembled in input order. A record whose
// evaluation reports errors counts as failed; once at least MinRecords
// records were processed and the share of failed records exceeds
// MaxFailureRate, the run stops with a domain.FailureThresholdError.
// Successful runs either persist their output through a Sink or return it.
package execute
