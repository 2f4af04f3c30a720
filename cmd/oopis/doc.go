// Package main is the OopisOS command-line shell.
//
// It runs one session against the configured snapshot store, so a file
// backend makes the tree survive between invocations.
//
// Usage:
//
//	oopis                         # interactive, with line editing on a terminal
//	oopis -c "ls -l /"            # one line
//	oopis -script setup.sh a b    # a host script, $1=a $2=b
//	echo "ls /" | oopis           # lines from a pipe
//
// Confirmation prompts read the next input line; anything but the
// configured token (YES) declines.
package main
