// Package xlog is a thin wrapper around the logger every component takes,
// so nothing in the core reaches for a package-global logger or bare
// fmt.Println.
package xlog

import "go.uber.org/zap"

// New returns a production (JSON) logger, or a development (console)
// logger when dev is true.
func New(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// Nop returns a logger that discards everything, for tests and callers
// that don't care to wire one up.
func Nop() *zap.Logger {
	return zap.NewNop()
}

// Component returns a child logger tagged with the component name, the
// same one-line-per-subsystem pattern krakenfs's sync engine uses.
func Component(base *zap.Logger, name string) *zap.Logger {
	return base.With(zap.String("component", name))
}
