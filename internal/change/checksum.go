// Package change fingerprints files and compares them against the
// checksums recorded by the previous run.
package change

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/crc32"
)

// chunkSize is the read granularity of Sum.
const chunkSize = 64 << 10

// Checksum is a 32-bit content fingerprint. The zero value is Unresolved:
// it marks a file whose last compile failed and never equals any real
// checksum, so the file is retried on every run until it compiles.
type Checksum struct {
	sum      uint32
	resolved bool
}

// Unresolved is the sentinel stored for sources that failed to compile.
var Unresolved = Checksum{}

// Of wraps a raw CRC value.
func Of(sum uint32) Checksum {
	return Checksum{sum: sum, resolved: true}
}

// Resolved reports whether c holds a real checksum.
func (c Checksum) Resolved() bool { return c.resolved }

// Equal reports whether both checksums are resolved and identical.
func (c Checksum) Equal(o Checksum) bool {
	return c.resolved && o.resolved && c.sum == o.sum
}

// String renders c as eight upper-case hex digits, or "unresolved".
func (c Checksum) String() string {
	if !c.resolved {
		return "unresolved"
	}
	return fmt.Sprintf("%08X", c.sum)
}

// MarshalJSON encodes a resolved checksum as a hex string and the
// sentinel as null.
func (c Checksum) MarshalJSON() ([]byte, error) {
	if !c.resolved {
		return []byte("null"), nil
	}
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts a hex string or null.
func (c *Checksum) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = Unresolved
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("checksum: %w", err)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fmt.Errorf("checksum %q: %w", s, err)
	}
	*c = Of(uint32(v))
	return nil
}

// Sum computes a running CRC32 (IEEE) over r in fixed-size chunks.
func Sum(r io.Reader) (Checksum, error) {
	var crc uint32
	buf := make([]byte, chunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			crc = crc32.Update(crc, crc32.IEEETable, buf[:n])
		}
		if err == io.EOF {
			return Of(crc), nil
		}
		if err != nil {
			return Unresolved, err
		}
	}
}
