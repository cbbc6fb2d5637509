package durability

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"log"
	"os"
)

// ReplayFunc applies one decoded record's arguments against live state.
// The caller is expected to route it through the normal write path with
// logging disabled, so replay never re-appends what it is replaying.
type ReplayFunc func(db string, args []string) error

// ReplayLog reads the log file at path sequentially, verifying each
// record's CRC32C before applying it via apply. On the first corrupt or
// truncated record it stops, warns, and truncates the file at that
// record's offset — the remainder of a half-written append is discarded
// rather than treated as a fatal error. A missing file replays zero
// records without error (a database with no prior writes).
func ReplayLog(path string, apply ReplayFunc) (int, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("durability: open log %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var offset int64
	count := 0
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("durability: %s: truncated record header at offset %d, stopping replay", path, offset)
			}
			break
		}
		length := binary.BigEndian.Uint32(hdr[0:4])
		wantCRC := binary.BigEndian.Uint32(hdr[4:8])
		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			log.Printf("durability: %s: truncated record payload at offset %d, stopping replay", path, offset)
			break
		}
		if crc32.Checksum(payload, crcTable) != wantCRC {
			log.Printf("durability: %s: checksum mismatch at offset %d, stopping replay", path, offset)
			break
		}
		db, args, err := DecodeTuple(payload)
		if err != nil {
			log.Printf("durability: %s: malformed tuple at offset %d (%v), stopping replay", path, offset, err)
			break
		}
		if err := apply(db, args); err != nil {
			return count, fmt.Errorf("durability: replay record %d (db=%s): %w", count, db, err)
		}
		count++
		offset += int64(len(hdr)) + int64(length)
	}
	if err := f.Truncate(offset); err != nil {
		return count, fmt.Errorf("durability: truncate %s tail at offset %d: %w", path, offset, err)
	}
	return count, nil
}
