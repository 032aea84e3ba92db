package correlation

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	geffe "github.com/BackendStack21/geffe-go"
	"github.com/BackendStack21/geffe-go/utils"
)

// SerializeCandidates encodes a candidate list.
//
// Layout (little-endian): count u32, then per candidate stateLen u32,
// stateLen bytes of 0/1, agreement u32, step u64.
func SerializeCandidates(cands []geffe.Candidate) []byte {
	size := 4
	for _, c := range cands {
		size += 4 + len(c.State) + 4 + 8
	}
	buf := make([]byte, 0, size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(cands)))
	for _, c := range cands {
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.State)))
		buf = append(buf, c.State...)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(c.Agreement))
		buf = binary.LittleEndian.AppendUint64(buf, uint64(c.Step))
	}
	return buf
}

// DeserializeCandidates decodes data produced by SerializeCandidates.
func DeserializeCandidates(data []byte) ([]geffe.Candidate, error) {
	count, offset, err := utils.SafeReadLength(data, 0, utils.MaxCandidates)
	if err != nil {
		return nil, fmt.Errorf("candidate count: %w", err)
	}
	// Each entry needs at least 17 bytes, so a short buffer can't claim a huge count.
	if count > (len(data)-offset)/17 {
		return nil, errors.New("candidate count exceeds payload")
	}
	cands := make([]geffe.Candidate, 0, count)
	for i := 0; i < count; i++ {
		var n int
		n, offset, err = utils.SafeReadLength(data, offset, utils.MaxDegree)
		if err != nil {
			return nil, fmt.Errorf("candidate %d state length: %w", i, err)
		}
		if err := utils.ValidateSliceAccess(data, offset, n+12); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		state := make(geffe.Sequence, n)
		for j := range state {
			b := data[offset+j]
			if b > 1 {
				return nil, fmt.Errorf("candidate %d: state byte %d is not a bit", i, b)
			}
			state[j] = b
		}
		offset += n
		agreement := binary.LittleEndian.Uint32(data[offset:])
		step := binary.LittleEndian.Uint64(data[offset+4:])
		offset += 12
		if step > math.MaxInt64 {
			return nil, fmt.Errorf("candidate %d: step %d out of range", i, step)
		}
		cands = append(cands, geffe.Candidate{State: state, Agreement: int(agreement), Step: int(step)})
	}
	if offset != len(data) {
		return nil, fmt.Errorf("%d trailing bytes", len(data)-offset)
	}
	return cands, nil
}
