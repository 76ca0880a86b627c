// Package orchestrate implements the three parallel workers spec §4.6
// describes: jar remap, source-tree apply, and incremental-extraction
// hashing, all built on bounded worker pools over shared queues.
package orchestrate

import (
	"bytes"
	"sync"
)

// bufPool hands out reusable *bytes.Buffer values so jar-remap workers
// don't allocate a fresh buffer per entry (spec §4.6: "each entry buffer
// is acquired from a pool, handed across the queue, and released by the
// writer after it is written to the zip").
var bufPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

func getBuffer() *bytes.Buffer {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

func putBuffer(buf *bytes.Buffer) {
	bufPool.Put(buf)
}
