// Package executor runs parsed pipelines against a session's tree.
//
// Segments run in order with each segment's output passed as the next
// one's stdin. The first failing segment stops the pipeline. An optional
// redirection writes the final output into the tree instead of the sink,
// and a backgrounded pipeline runs as a numbered job whose output is
// replaced by a short notice.
//
// One command executes at a time per executor. A mutex gate is held for
// each segment and released only at suspension points (confirmation
// prompts and delay), which is where background jobs get to run. Lines
// started from inside a running command, such as find -exec or a script,
// run under the gate their caller already holds.
//
// Basic usage:
//
//	exec := executor.New(executor.Options{
//		Registry: registry,
//		Tree:     tree,
//		User:     "guest",
//		Sink:     executor.NewWriterSink(os.Stdout, true),
//	})
//	result := exec.ExecuteLine(ctx, "ls -l / | grep txt > /found")
package executor
