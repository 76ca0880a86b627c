package classfile

import (
	"encoding/binary"
	"fmt"

	"github.com/techcable-oss/supersrg/internal/srgerr"
)

// ThisClassInternalName reads the access_flags and this_class fields that
// immediately follow the constant pool and resolves this_class to its
// internal name. This is outside the constant pool proper (spec §4.3 scopes
// the decoder to the pool itself) but jar orchestration needs it to know
// what a remapped class file should be renamed to in the output archive
// (spec §4.6: "remapped by the remapped class internal name").
func ThisClassInternalName(d *ConstantPoolDecoder) (string, error) {
	buf := d.Buffer()
	offset := d.End() + 2 // skip access_flags
	if offset+2 > len(buf) {
		return "", fmt.Errorf("%w: truncated class file before this_class field", srgerr.ConstantPoolDecode)
	}
	thisClass := binary.BigEndian.Uint16(buf[offset : offset+2])
	return d.ClassRefName(int(thisClass) - 1)
}
