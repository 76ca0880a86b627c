// Package apply implements StreamRangeApplier: the left-to-right, single
// pass rewrite of a source file's recorded field/method reference spans
// (spec §4.2). It never buffers the whole file and never touches bytes
// outside a recorded span.
package apply

import (
	"bufio"
	"io"

	"github.com/techcable-oss/supersrg/internal/ranges"
	"github.com/techcable-oss/supersrg/internal/srgerr"
)

const copyBufferSize = 32 * 1024

// Mapping resolves field and method renames. A false second return means
// no rename applies and the applier keeps the original name.
type Mapping interface {
	FieldName(owner, name string) (newName string, ok bool)
	MethodName(owner, name, descriptor string) (newName string, ok bool)
}

// StreamRangeApplier rewrites one source file's recorded reference spans
// against a Mapping, streaming input to output without random access.
type StreamRangeApplier struct {
	mapping Mapping
	buf     []byte
}

// NewStreamRangeApplier constructs an applier bound to mapping. The
// returned value is not safe for concurrent use by multiple goroutines,
// but a single applier may be reused across files sequentially.
func NewStreamRangeApplier(mapping Mapping) *StreamRangeApplier {
	return &StreamRangeApplier{mapping: mapping, buf: make([]byte, copyBufferSize)}
}

// Apply copies in to out, rewriting each reference's span along the way.
// refs must already be sorted ascending by FileLocation; the caller
// typically obtains this via RangeMap.SortedReferences.
func (a *StreamRangeApplier) Apply(in io.Reader, out io.Writer, refs []ranges.MemberReference) error {
	r := bufio.NewReaderSize(in, copyBufferSize)
	pos := int64(0)
	var prior *ranges.MemberReference

	for i := range refs {
		ref := refs[i]
		start := int64(ref.Location.Start)
		end := int64(ref.Location.End)

		if pos > start {
			priorStr := "<none>"
			if prior != nil {
				priorStr = prior.String()
			}
			return &srgerr.OverlappingReferencesError{Prior: priorStr, Current: ref.String()}
		}

		if err := a.copyVerbatim(r, out, pos, start-pos); err != nil {
			return err
		}
		pos = start

		original := make([]byte, ref.Location.Size())
		if _, err := io.ReadFull(r, original); err != nil {
			return &srgerr.UnexpectedEOFError{Offset: pos}
		}
		if string(original) != ref.Name() {
			return &srgerr.IdentifierMismatchError{Offset: pos, Expected: ref.Name(), Actual: string(original)}
		}

		replacement := original
		if ref.Kind == ranges.KindField {
			if newName, ok := a.mapping.FieldName(ref.Owner(), ref.Name()); ok {
				replacement = []byte(newName)
			}
		} else {
			if newName, ok := a.mapping.MethodName(ref.Owner(), ref.Name(), ref.Method.Descriptor); ok {
				replacement = []byte(newName)
			}
		}
		if _, err := out.Write(replacement); err != nil {
			return err
		}

		pos = end
		prior = &refs[i]
	}

	if _, err := io.Copy(out, r); err != nil {
		return err
	}
	return nil
}

// copyVerbatim copies exactly n bytes from r to out through the applier's
// internal buffer. startOffset is the absolute input offset of the first
// byte copied, used only to report an accurate UnexpectedEOF offset.
func (a *StreamRangeApplier) copyVerbatim(r io.Reader, out io.Writer, startOffset, n int64) error {
	remaining := n
	for remaining > 0 {
		chunk := int64(len(a.buf))
		if remaining < chunk {
			chunk = remaining
		}
		read, err := io.ReadFull(r, a.buf[:chunk])
		if read > 0 {
			if _, werr := out.Write(a.buf[:read]); werr != nil {
				return werr
			}
			remaining -= int64(read)
		}
		if err != nil {
			return &srgerr.UnexpectedEOFError{Offset: startOffset + (n - remaining)}
		}
	}
	return nil
}
