// Package manifest builds tile manifests: it walks a coordinate range with a
// fixed-size pool of workers, asks an existence probe about every coordinate
// and collects the ones that exist.
//
// Each worker loops claim, probe, record until the work set is empty, so at
// most min(maxInFlight, range size) probes are ever outstanding and a slot is
// refilled as soon as its probe resolves. Claims pop from the end of the
// flattened range by default (see ClaimOrder), which means tiles near the
// range end are probed first.
//
// Probe failures are not build failures. A failed coordinate is treated as
// absent and listed in Result.Failures for callers that want to report it.
package manifest
