// Package durability implements the append-only log and snapshot that let
// a database's in-memory state survive a restart: a CRC-framed log of
// committed write tuples, a JSON snapshot, and the startup replay that
// rebuilds state from whichever combination of the two is newest.
package durability

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"sync"
)

var crcTable = crc32.MakeTable(crc32.Castagnoli)

// EncodeTuple serializes one committed write as the log payload: a
// leading database-name tag followed by the command's argument strings,
// each length-prefixed.
func EncodeTuple(db string, args []string) []byte {
	buf := make([]byte, 0, 16+len(db)+8*len(args))
	buf = appendLP(buf, db)
	for _, a := range args {
		buf = appendLP(buf, a)
	}
	return buf
}

func appendLP(buf []byte, s string) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(s)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, s...)
	return buf
}

// DecodeTuple parses a payload produced by EncodeTuple back into the
// database-name tag and argument strings.
func DecodeTuple(payload []byte) (db string, args []string, err error) {
	r := payload
	first := true
	for len(r) > 0 {
		if len(r) < 4 {
			return "", nil, fmt.Errorf("durability: truncated tuple length prefix")
		}
		n := binary.BigEndian.Uint32(r[:4])
		r = r[4:]
		if uint32(len(r)) < n {
			return "", nil, fmt.Errorf("durability: truncated tuple payload")
		}
		s := string(r[:n])
		r = r[n:]
		if first {
			db = s
			first = false
			continue
		}
		args = append(args, s)
	}
	return db, args, nil
}

// Log is a single-writer, append-only, CRC32C-framed write log for one
// database file. Each record on disk is {len u32, crc32 u32, payload}.
type Log struct {
	mu        sync.Mutex
	path      string
	file      *os.File
	w         *bufio.Writer
	fsyncN    int
	sinceSync int
}

// OpenLog opens (creating if needed) the log file at path for appending.
// fsyncEveryN controls the fsync policy: 1 (the default when <= 0) fsyncs
// after every record, larger values batch fsyncs across N appends.
func OpenLog(path string, fsyncEveryN int) (*Log, error) {
	if fsyncEveryN <= 0 {
		fsyncEveryN = 1
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("durability: open log %s: %w", path, err)
	}
	return &Log{path: path, file: f, w: bufio.NewWriter(f), fsyncN: fsyncEveryN}, nil
}

// Append writes one framed record for payload. It flushes the buffered
// writer unconditionally and fsyncs the underlying file once every fsyncN
// appends, per the configured policy.
func (l *Log) Append(payload []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint32(hdr[4:8], crc32.Checksum(payload, crcTable))
	if _, err := l.w.Write(hdr[:]); err != nil {
		return fmt.Errorf("durability: write record header: %w", err)
	}
	if _, err := l.w.Write(payload); err != nil {
		return fmt.Errorf("durability: write record payload: %w", err)
	}
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("durability: flush log: %w", err)
	}
	l.sinceSync++
	if l.sinceSync >= l.fsyncN {
		if err := l.file.Sync(); err != nil {
			return fmt.Errorf("durability: fsync log: %w", err)
		}
		l.sinceSync = 0
	}
	return nil
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.w.Flush(); err != nil {
		return fmt.Errorf("durability: final flush: %w", err)
	}
	return l.file.Close()
}

// Rewrite atomically replaces the log file at path with one containing
// exactly the given payloads, writing to a temp file and renaming it into
// place so a crash mid-rewrite never leaves a partial log. Used by
// REWRITEAOF to synthesize a minimal log that reproduces current state.
func Rewrite(path string, payloads [][]byte) error {
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("durability: create %s: %w", tmp, err)
	}
	w := bufio.NewWriter(f)
	for _, payload := range payloads {
		var hdr [8]byte
		binary.BigEndian.PutUint32(hdr[0:4], uint32(len(payload)))
		binary.BigEndian.PutUint32(hdr[4:8], crc32.Checksum(payload, crcTable))
		if _, err := w.Write(hdr[:]); err != nil {
			f.Close()
			return fmt.Errorf("durability: write rewrite record: %w", err)
		}
		if _, err := w.Write(payload); err != nil {
			f.Close()
			return fmt.Errorf("durability: write rewrite payload: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("durability: flush rewrite: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("durability: fsync rewrite: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("durability: close rewrite: %w", err)
	}
	return os.Rename(tmp, path)
}
