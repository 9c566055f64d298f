// Package luacore is an embeddable execution engine for a lua 5.4 style
// scripting language. It runs compiled chunks on a register machine with
// closures, metatables and coroutines, and reports failures as structured
// errors carrying a traceback.
//
//	luacore does not parse source code. Chunks are produced by a compiler
//	elsewhere and either built in memory with the chunk package or loaded from
//	files written by chunk.Dump.
//
//	The runtime package holds the engine itself. This package only offers
//	shortcuts to run a chunk with the builtin libraries loaded.
package luacore
