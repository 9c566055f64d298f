// Package conf contains the constants that are used across packages for configuring
// versions and stack sizes, as well as the runtime configuration that can be
// loaded from a toml file.
package conf

import (
	"fmt"
	"time"
)

const (
	// LUASIGNATURE is an artifact to put at the beginning of a dumped chunk so that we can detect binary data.
	LUASIGNATURE = "\x1bLuac"
	// LUAVERSION is the version of the luacore runtime.
	LUAVERSION = "Luacore 0.1.0"
	// LUAVERSIONMAJORN is the major version.
	LUAVERSIONMAJORN = 0
	// LUAVERSIONMINORN is the minor version.
	LUAVERSIONMINORN = 1
	// LUAVERSIONPATCHN is the patch version.
	LUAVERSIONPATCHN = 0
	// LUAFORMAT dump/undump format incase it ever changes.
	LUAFORMAT = 1
	// INITIALSTACKSIZE stack size at thread startup.
	INITIALSTACKSIZE = 128
	// MAXSTACKSIZE max stack size of a single thread.
	MAXSTACKSIZE = 1_000_000
	// MAXCALLDEPTH max amount of nested calls on a single thread.
	MAXCALLDEPTH = 200
	// MAXUPVALUES max allowed upvals referred in a fn scope.
	MAXUPVALUES = 255
	// MAXRESULTS max amount of return values when a call wants all results.
	MAXRESULTS = 250
	// MAXTAGLOOP max amount of __index/__newindex tables followed before giving up.
	MAXTAGLOOP = 2000
	// LFIELDSPERFLUSH number of list items to accumulate before a SETLIST instruction.
	LFIELDSPERFLUSH = 50
	// DefaultChunkName is used when a chunk has no name.
	DefaultChunkName = "chunk"
)

// FullVersion returns the version and copyright.
func FullVersion() string {
	return fmt.Sprintf("%v Copyright (C) %v", LUAVERSION, time.Now().Year())
}

// Copyright is the copyright to be written out in the CLI.
func Copyright() string {
	return fmt.Sprintf("Copyright (C) %v", time.Now().Year())
}
