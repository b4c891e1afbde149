// Package bootstrap wires configuration, logging, and the matcher together
// for the command-line entry points.
package bootstrap
