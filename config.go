// Package wasmcore implements the execution core of a WebAssembly 1.0
// interpreter: value representation, linear memory, tables, globals, a
// module/import registry, a validator, an instantiation pipeline, and an
// opcode dispatch loop. Parsing the binary format into a Module is a
// separate, out-of-scope concern; everything here operates on an
// already-decoded wasmcore/internal/wasm.Module.
package wasmcore

import (
	"github.com/sirupsen/logrus"

	"github.com/mikeshort10/wasmcore/internal/wasm"
)

// Config controls instantiation behavior, with the default implementation
// as NewConfig. Every With* method returns a new Config; the receiver is
// never mutated, so a Config can be shared across Programs safely.
type Config struct {
	valueStackLimit       int
	frameStackLimit       int
	checkExportUniqueness bool
	blessedModules        map[string]bool
	logger                logrus.FieldLogger
}

// NewConfig returns the default Config: 16384-entry value stack,
// 1024-entry frame stack, export uniqueness enforced, and "env" blessed
// as the one import source trusted by default (the conventional host
// namespace).
func NewConfig() *Config {
	return &Config{
		valueStackLimit:       wasm.DefaultLimits.ValueStackLimit,
		frameStackLimit:       wasm.DefaultLimits.FrameStackLimit,
		checkExportUniqueness: true,
		blessedModules:        map[string]bool{"env": true},
		logger:                logrus.StandardLogger(),
	}
}

// clone ensures all fields are copied even if nil.
func (c *Config) clone() *Config {
	blessed := make(map[string]bool, len(c.blessedModules))
	for k, v := range c.blessedModules {
		blessed[k] = v
	}
	return &Config{
		valueStackLimit:       c.valueStackLimit,
		frameStackLimit:       c.frameStackLimit,
		checkExportUniqueness: c.checkExportUniqueness,
		blessedModules:        blessed,
		logger:                c.logger,
	}
}

// WithValueStackLimit caps the number of operand-stack entries any single
// invocation (and its nested calls, combined) may use before a call traps
// with a stack-overflow error.
func (c *Config) WithValueStackLimit(limit int) *Config {
	ret := c.clone()
	ret.valueStackLimit = limit
	return ret
}

// WithFrameStackLimit caps the number of open block/loop/if frames within
// a single function call before that call traps. Each nested call gets the
// full limit; it does not cap call depth.
func (c *Config) WithFrameStackLimit(limit int) *Config {
	ret := c.clone()
	ret.frameStackLimit = limit
	return ret
}

// WithExportUniquenessCheck toggles whether Instantiate rejects a module
// that declares two exports under the same name. Real producers never
// emit these, so disabling this is mostly useful for fuzzing malformed
// modules.
func (c *Config) WithExportUniquenessCheck(enabled bool) *Config {
	ret := c.clone()
	ret.checkExportUniqueness = enabled
	return ret
}

// WithBlessedModule adds name to the set of import module names treated
// as trusted host namespaces. Imports from names outside this set still
// resolve normally against the Store and any externals map passed to
// AddModule; the allow-list only affects what gets logged at instantiation
// time, not what is resolvable.
func (c *Config) WithBlessedModule(name string) *Config {
	ret := c.clone()
	ret.blessedModules[name] = true
	return ret
}

// WithLogger overrides the logrus.FieldLogger used for instantiation and
// dispatch tracing. Passing nil restores the standard logger.
func (c *Config) WithLogger(logger logrus.FieldLogger) *Config {
	ret := c.clone()
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ret.logger = logger
	return ret
}

func (c *Config) limits() wasm.Limits {
	return wasm.Limits{ValueStackLimit: c.valueStackLimit, FrameStackLimit: c.frameStackLimit}
}

func (c *Config) instantiateOptions() wasm.InstantiateOptions {
	return wasm.InstantiateOptions{
		Limits:                c.limits(),
		CheckExportUniqueness: c.checkExportUniqueness,
		BlessedModules:        c.blessedModules,
		Logger:                c.logger,
	}
}
