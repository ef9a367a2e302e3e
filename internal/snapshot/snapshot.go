// Package snapshot persists the built index triple (inverted index, document
// table, trie vocabulary) as a single .dsnap container file.
//
// Layout: a 64-byte little-endian header, a JSON term-entry section sorted by
// term, a JSON document section sorted by ID, and a 16-byte footer carrying a
// CRC32 over both sections. Writes go to a temp file and are renamed into
// place, so readers only ever observe complete snapshots. The trie is not
// serialized structurally; it is rebuilt on load by inserting the sorted term
// dictionary, which produces an identical tree.
package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/docsearch-io/docsearch/internal/index"
	dserrors "github.com/docsearch-io/docsearch/pkg/errors"
)

const (
	MagicBytes    uint32 = 0x44534E41
	FormatVersion uint32 = 1
	HeaderSize    int    = 64
	FooterSize    int    = 16
)

type header struct {
	Magic     uint32
	Version   uint32
	TermCount uint32
	DocCount  uint32
	TermsOff  int64
	TermsSize int64
	DocsOff   int64
	DocsSize  int64
	CreatedAt int64
}

// Write serialises snap into path atomically. The parent directory is
// created if missing.
func Write(path string, snap *index.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	termsData, err := json.Marshal(snap.TermEntries())
	if err != nil {
		return fmt.Errorf("marshaling term entries: %w", err)
	}
	docsData, err := json.Marshal(snap.Documents())
	if err != nil {
		return fmt.Errorf("marshaling document table: %w", err)
	}

	h := header{
		Magic:     MagicBytes,
		Version:   FormatVersion,
		TermCount: uint32(snap.TermCount()),
		DocCount:  uint32(snap.DocCount()),
		TermsOff:  int64(HeaderSize),
		TermsSize: int64(len(termsData)),
		DocsOff:   int64(HeaderSize + len(termsData)),
		DocsSize:  int64(len(docsData)),
		CreatedAt: time.Now().Unix(),
	}

	checksum := crc32.ChecksumIEEE(termsData)
	checksum = crc32.Update(checksum, crc32.IEEETable, docsData)
	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], checksum)

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp snapshot file: %w", err)
	}
	defer f.Close()

	for _, chunk := range [][]byte{encodeHeader(h), termsData, docsData, footer} {
		if _, err := f.Write(chunk); err != nil {
			return fmt.Errorf("writing snapshot: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing snapshot file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming snapshot file: %w", err)
	}
	return nil
}

// Load reads a snapshot file and reconstructs the triple. Any failure —
// missing file, bad magic, checksum mismatch, malformed sections — is
// reported as dserrors.ErrSnapshotLoad; callers must treat that as fatal
// rather than serving an empty index.
func Load(path string) (*index.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", dserrors.ErrSnapshotLoad, path, err)
	}
	if len(data) < HeaderSize+FooterSize {
		return nil, fmt.Errorf("%w: file truncated (%d bytes)", dserrors.ErrSnapshotLoad, len(data))
	}

	h := decodeHeader(data[:HeaderSize])
	if h.Magic != MagicBytes {
		return nil, fmt.Errorf("%w: bad magic bytes %x", dserrors.ErrSnapshotLoad, h.Magic)
	}
	if h.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", dserrors.ErrSnapshotLoad, h.Version)
	}
	// Header fields are attacker-controlled until the checksum is verified,
	// and the checksum lives behind these offsets. Sizes are compared by
	// subtraction so a huge or negative value cannot wrap the sum past end.
	end := int64(len(data) - FooterSize)
	if h.TermsSize < 0 || h.DocsSize < 0 ||
		h.TermsOff < int64(HeaderSize) || h.TermsSize > end-h.TermsOff ||
		h.DocsOff < h.TermsOff+h.TermsSize || h.DocsSize > end-h.DocsOff {
		return nil, fmt.Errorf("%w: section offsets out of bounds", dserrors.ErrSnapshotLoad)
	}

	termsData := data[h.TermsOff : h.TermsOff+h.TermsSize]
	docsData := data[h.DocsOff : h.DocsOff+h.DocsSize]

	checksum := crc32.ChecksumIEEE(termsData)
	checksum = crc32.Update(checksum, crc32.IEEETable, docsData)
	stored := binary.LittleEndian.Uint32(data[len(data)-FooterSize:])
	if checksum != stored {
		return nil, fmt.Errorf("%w: checksum mismatch (stored %x, computed %x)", dserrors.ErrSnapshotLoad, stored, checksum)
	}

	var entries []index.TermEntry
	if err := json.Unmarshal(termsData, &entries); err != nil {
		return nil, fmt.Errorf("%w: parsing term entries: %v", dserrors.ErrSnapshotLoad, err)
	}
	var docs []index.Document
	if err := json.Unmarshal(docsData, &docs); err != nil {
		return nil, fmt.Errorf("%w: parsing document table: %v", dserrors.ErrSnapshotLoad, err)
	}

	snap := index.NewSnapshot()
	for _, entry := range entries {
		snap.Inverted[entry.Term] = entry.Postings
		snap.Vocab.Insert(entry.Term)
	}
	for _, doc := range docs {
		snap.Docs[doc.ID] = doc
	}
	if snap.TermCount() != int(h.TermCount) || snap.DocCount() != int(h.DocCount) {
		return nil, fmt.Errorf("%w: header counts disagree with sections", dserrors.ErrSnapshotLoad)
	}
	return snap, nil
}

func encodeHeader(h header) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.TermCount)
	binary.LittleEndian.PutUint32(buf[12:16], h.DocCount)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.TermsOff))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(h.TermsSize))
	binary.LittleEndian.PutUint64(buf[32:40], uint64(h.DocsOff))
	binary.LittleEndian.PutUint64(buf[40:48], uint64(h.DocsSize))
	binary.LittleEndian.PutUint64(buf[48:56], uint64(h.CreatedAt))
	return buf
}

func decodeHeader(buf []byte) header {
	return header{
		Magic:     binary.LittleEndian.Uint32(buf[0:4]),
		Version:   binary.LittleEndian.Uint32(buf[4:8]),
		TermCount: binary.LittleEndian.Uint32(buf[8:12]),
		DocCount:  binary.LittleEndian.Uint32(buf[12:16]),
		TermsOff:  int64(binary.LittleEndian.Uint64(buf[16:24])),
		TermsSize: int64(binary.LittleEndian.Uint64(buf[24:32])),
		DocsOff:   int64(binary.LittleEndian.Uint64(buf[32:40])),
		DocsSize:  int64(binary.LittleEndian.Uint64(buf[40:48])),
		CreatedAt: int64(binary.LittleEndian.Uint64(buf[48:56])),
	}
}
