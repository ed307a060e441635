// Package effects provides the built-in frame transforms of the pedal.
//
// Every effect maps the parameter vector through its Controls, keeps
// separate state per audio channel, and recomputes derived coefficients
// only when the vector's version changes. Transform never allocates.
package effects
