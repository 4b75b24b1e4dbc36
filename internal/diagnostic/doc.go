// Package diagnostic provides structured errors, warnings and infos collected
// while compiling mappings and evaluating them against records.
//
// Diagnostics never abort work on their own. The compiler attaches warnings
// for suspicious but legal mappings; the executor attaches one Diagnostics
// value per record so that a failing record can be reported without stopping
// the whole job.
package diagnostic
