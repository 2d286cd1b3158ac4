package runlog

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"io"
	"strconv"
)

// hashVersion prefixes the digest so hashes from incompatible log formats
// never collide silently.
const hashVersion = "RADAR_TRACKING_V1\n"

// RunHash accumulates an FNV-1a 64 digest over the per-step track lines.
// Two runs with the same seed and configuration produce the same digest;
// it is the cheap end-of-run determinism witness.
type RunHash struct {
	h hash.Hash64
}

// NewRunHash seeds the digest with the format version and the run seed.
func NewRunHash(seed uint64) *RunHash {
	h := fnv.New64a()
	io.WriteString(h, hashVersion)
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	h.Write(b[:])
	return &RunHash{h: h}
}

// AddTrackLine folds one track's per-step state into the digest. Values are
// rendered with fixed six-decimal formatting so the digest depends only on
// the numbers, not on shortest-representation quirks.
func (r *RunHash) AddTrackLine(step int, id uint32, confirmed bool, x [4]float64) {
	line := strconv.Itoa(step) + "," +
		strconv.FormatUint(uint64(id), 10) + "," +
		Bool(confirmed) + "," +
		strconv.FormatFloat(x[0], 'f', 6, 64) + "," +
		strconv.FormatFloat(x[1], 'f', 6, 64) + "," +
		strconv.FormatFloat(x[2], 'f', 6, 64) + "," +
		strconv.FormatFloat(x[3], 'f', 6, 64) + "\n"
	io.WriteString(r.h, line)
}

// Sum64 returns the current digest.
func (r *RunHash) Sum64() uint64 { return r.h.Sum64() }
