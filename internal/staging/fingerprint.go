package staging

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// FingerprintVersion identifies the hash encoding below. Bump it if the
// field order, the null marker, or the length prefix ever change, since any
// such change invalidates historical hash comparisons.
const FingerprintVersion = 1

// Fingerprint computes the content hash of one canonical row: lowercase hex
// SHA-256 over the content fields in their declared order.
//
// Encoding, per field: a presence marker byte (0x00 for null, 0x01 for
// present) followed, when present, by the big-endian uint64 byte length of
// the UTF-8 value and the value bytes. The marker keeps a null field and an
// empty-string field distinct; the length prefix makes field boundaries
// unambiguous regardless of content.
//
// The hash is a pure function of the content fields. Lineage, the ingestion
// timestamp, and the hash itself never participate, so identical content
// hashes identically across vendors, files, and runs.
func Fingerprint(f *ContentFields) string {
	h := sha256.New()
	var lenBuf [8]byte
	for _, cf := range contentFieldSlots {
		v := *cf.slot(f)
		if v == nil {
			h.Write([]byte{0x00})
			continue
		}
		h.Write([]byte{0x01})
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(*v)))
		h.Write(lenBuf[:])
		h.Write([]byte(*v))
	}
	return hex.EncodeToString(h.Sum(nil))
}
