// Package cli parses trackc's command line, validates user input, and maps
// failures onto process exit codes.
package cli
