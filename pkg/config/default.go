// Global database config.
package config

// Name of the database.
const DBName = "bloomdb"

// Prompt printed by REPL.
const Prompt = DBName + "> "

// Default TCP port (BLOOM on a keypad, truncated).
const DefaultPort = 2566

// Name of the command log file, relative to the data folder.
const LogFileName = "bloom.log"

// Name of the snapshot file, relative to the data folder.
const SnapshotFileName = "dump.bloom"

// Default memory budget for filter storage and registry nodes, in bytes.
const DefaultMaxMemory int64 = 512 << 20

// Longest command line the REPL accepts, in bytes.
const MaxLineSize = 16 << 20

// Default log level.
const DefaultLogLevel = "info"

// Return prompt if requested, else "".
func GetPrompt(flag bool) string {
	if flag {
		return Prompt
	}
	return ""
}
