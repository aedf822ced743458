package parser

import "strings"

// Accumulator buffers streamed chunks for one generation and reports each parsed node once.
//
// Thread-safety: NOT thread-safe. Chunks of one generation must be written in arrival order
// by a single goroutine.
type Accumulator struct {
	parentPath string
	startIndex int

	buffer  strings.Builder
	emitted int
	last    Result
}

// NewAccumulator creates an accumulator for children of parentPath numbered from startIndex.
func NewAccumulator(parentPath string, startIndex int) *Accumulator {
	return &Accumulator{
		parentPath: parentPath,
		startIndex: startIndex,
	}
}

// Write appends chunk, re-parses the whole buffer and returns the nodes that were not
// returned by an earlier call.
func (a *Accumulator) Write(chunk string) []Node {
	a.buffer.WriteString(chunk)
	a.last = Parse(a.buffer.String(), a.parentPath, a.startIndex)

	if len(a.last.Nodes) <= a.emitted {
		return nil
	}
	fresh := a.last.Nodes[a.emitted:]
	a.emitted = len(a.last.Nodes)
	return fresh
}

// Result returns the parse of everything written so far.
func (a *Accumulator) Result() Result {
	return a.last
}

// Buffer returns the raw text written so far.
func (a *Accumulator) Buffer() string {
	return a.buffer.String()
}
