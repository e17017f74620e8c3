// Package faults defines the error taxonomy shared by the catalog store,
// the verification gate, and the contribution engine.
//
// Errors carry one of the exported sentinel markers so callers can classify
// a failure with errors.Is without parsing messages. Wrap attaches component
// and operation context while preserving the marker and any underlying
// error. The engine never logs-and-swallows; every failure propagates to the
// caller tagged with its kind.
package faults
