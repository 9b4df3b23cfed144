// Package coverage records the sequence of branch decisions a trace
// emulation takes and turns it into a deduplicated, hashable path (spec.md
// §4.5): a (branch id, visit count, taken) triple per decision, hashed into
// a stable fingerprint so the search can tell whether an execution explored
// new territory.
package coverage

import (
	"encoding/binary"
	"math/bits"

	"github.com/bits-and-blooms/bitset"
	"github.com/icza/bitio"
	"github.com/ronanh/intcomp"
	"golang.org/x/crypto/blake2b"
)

// BranchVisit is one decision point along an execution: the branch's
// identity, how many times this specific branch id has been hit so far in
// the current path, and which side was taken.
type BranchVisit struct {
	ID    uint64
	Visit uint32
	Taken bool
}

// Path is a recorded sequence of branch decisions.
type Path []BranchVisit

// Tracker accumulates the current execution's path and remembers every
// distinct path hash seen across the whole search.
//
// Clear resets only the in-flight path (mirrors the reference tracker's
// clear_current_path): per-run branch-visit counters restart, but the
// history of distinct paths already discovered is preserved, which is what
// lets the distinct-path total Finish returns grow monotonically across a
// sequence of Finish calls.
// Reset additionally wipes that history, for callers that want a fully
// fresh tracker (e.g. between independent fuzzing sessions on different
// programs).
type Tracker struct {
	current     Path
	visitCounts map[uint64]uint32
	seenBranch  *bitset.BitSet
	seenPaths   map[uint64]struct{}
	archive     map[uint64][]uint32 // path hash -> compressed visit-count sequence
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		visitCounts: map[uint64]uint32{},
		seenBranch:  bitset.New(0),
		seenPaths:   map[uint64]struct{}{},
		archive:     map[uint64][]uint32{},
	}
}

// Record appends one branch decision to the current path.
func (t *Tracker) Record(branchID uint64, taken bool) {
	t.visitCounts[branchID]++
	t.current = append(t.current, BranchVisit{ID: branchID, Visit: t.visitCounts[branchID], Taken: taken})
	t.seenBranch.Set(uint(branchID))
}

// CurrentPath returns the path recorded since the last Clear/Reset.
func (t *Tracker) CurrentPath() Path { return t.current }

// Clear starts a new execution: the in-flight path and per-branch visit
// counters are wiped, but discovered-path history is kept.
func (t *Tracker) Clear() {
	t.current = nil
	t.visitCounts = map[uint64]uint32{}
}

// Reset fully wipes the tracker, including discovered-path history.
func (t *Tracker) Reset() {
	t.Clear()
	t.seenBranch = bitset.New(0)
	t.seenPaths = map[uint64]struct{}{}
	t.archive = map[uint64][]uint32{}
}

// SeenBranchCount reports how many distinct branch ids have ever been hit.
func (t *Tracker) SeenBranchCount() uint { return t.seenBranch.Count() }

// PathHash returns the stable 64-bit fingerprint of the current path.
func (t *Tracker) PathHash() uint64 { return hashPath(t.current) }

// Finish registers the current path as discovered (if new) and reports
// whether it was new plus the running total of distinct paths ever seen.
// Callers typically call Clear() right after to start the next execution.
func (t *Tracker) Finish() (isNew bool, totalDistinct int) {
	h := t.PathHash()
	if _, ok := t.seenPaths[h]; ok {
		return false, len(t.seenPaths)
	}
	t.seenPaths[h] = struct{}{}
	t.archive[h] = compressVisitCounts(t.current)
	return true, len(t.seenPaths)
}

// ArchivedVisitCounts returns the compressed visit-count sequence stored
// for a previously-finished path, or nil if the hash is unknown.
func (t *Tracker) ArchivedVisitCounts(pathHash uint64) []uint32 {
	compressed, ok := t.archive[pathHash]
	if !ok {
		return nil
	}
	return intcomp.UncompressUint32(compressed, nil)
}

func compressVisitCounts(path Path) []uint32 {
	counts := make([]uint32, len(path))
	for i, v := range path {
		counts[i] = v.Visit
	}
	return intcomp.CompressUint32(counts, nil)
}

// hashPath bit-packs the path into a compact stream (each triple as a
// varint-width id, a visit count, and one taken bit) and blake2b-hashes it,
// truncating to 64 bits. Packing before hashing keeps the digest input
// small and keeps equal paths equal regardless of how large individual
// visit counts grow.
func hashPath(path Path) uint64 {
	h, _ := blake2b.New(32, nil)
	buf := make([]byte, 0, len(path)*9)
	for _, v := range path {
		w := bitio.NewWriter(sliceWriter{&buf})
		idLen := byte((bits.Len64(v.ID) + 7) / 8)
		_ = w.WriteByte(idLen)
		idBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(idBytes, v.ID)
		_, _ = w.Write(idBytes[8-idLen:])
		_, _ = w.Write(uint32Bytes(v.Visit))
		_ = w.WriteBool(v.Taken)
		_ = w.Close()
	}
	_, _ = h.Write(buf)
	sum := h.Sum(nil)
	return binary.BigEndian.Uint64(sum[:8])
}

func uint32Bytes(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// sliceWriter adapts a *[]byte to io.Writer for bitio.NewWriter.
type sliceWriter struct{ buf *[]byte }

func (w sliceWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}
