package diagram

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/Sumatoshi-tech/ddgroups/pkg/safeconv"
)

// Snapshot payload encodings.
const (
	codecRaw byte = 0
	codecLZ4 byte = 1

	// snapshotHeaderSize is one codec byte plus the uint32 variable count.
	snapshotHeaderSize = 5
	uint32ByteSize     = 4
)

// Snapshot encodes the current level order. Blocks are not part of the
// snapshot; Restore keeps the blocks registered at restore time.
func (m *Memory) Snapshot() ([]byte, error) {
	order := make([]uint32, m.Size())
	for level, idx := range m.level2index {
		order[level] = safeconv.MustIntToUint32(idx)
	}

	raw := new(bytes.Buffer)

	writeErr := binary.Write(raw, binary.LittleEndian, order)
	if writeErr != nil {
		return nil, fmt.Errorf("encode order: %w", writeErr)
	}

	header := make([]byte, snapshotHeaderSize)
	binary.LittleEndian.PutUint32(header[1:], safeconv.MustIntToUint32(len(order)))

	compressed := make([]byte, lz4.CompressBlockBound(raw.Len()))

	written, err := lz4.CompressBlock(raw.Bytes(), compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("compress order: %w", err)
	}

	// lz4 reports zero for incompressible input.
	if written == 0 || written >= raw.Len() {
		header[0] = codecRaw

		return append(header, raw.Bytes()...), nil
	}

	header[0] = codecLZ4

	return append(header, compressed[:written]...), nil
}

// Restore installs an order produced by Snapshot. It fails with
// ErrBadSnapshot on malformed input and with the errors of Permute when the
// order does not fit the current variables and blocks.
func (m *Memory) Restore(snapshot []byte) error {
	if len(snapshot) < snapshotHeaderSize {
		return fmt.Errorf("%w: short header", ErrBadSnapshot)
	}

	count := safeconv.MustUint32ToInt(binary.LittleEndian.Uint32(snapshot[1:snapshotHeaderSize]))
	if count != m.Size() {
		return fmt.Errorf("%w: %d variables, want %d", ErrBadSnapshot, count, m.Size())
	}

	payload := snapshot[snapshotHeaderSize:]
	raw := make([]byte, count*uint32ByteSize)

	switch snapshot[0] {
	case codecRaw:
		if len(payload) != len(raw) {
			return fmt.Errorf("%w: payload size %d, want %d", ErrBadSnapshot, len(payload), len(raw))
		}

		copy(raw, payload)
	case codecLZ4:
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBadSnapshot, err)
		}

		if n != len(raw) {
			return fmt.Errorf("%w: decoded %d bytes, want %d", ErrBadSnapshot, n, len(raw))
		}
	default:
		return fmt.Errorf("%w: codec %d", ErrBadSnapshot, snapshot[0])
	}

	decoded := make([]uint32, count)

	readErr := binary.Read(bytes.NewReader(raw), binary.LittleEndian, decoded)
	if readErr != nil {
		return fmt.Errorf("%w: %w", ErrBadSnapshot, readErr)
	}

	order := make([]int, count)
	for i, idx := range decoded {
		order[i] = safeconv.MustUint32ToInt(idx)
	}

	return m.Permute(order)
}
