package models

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// GroupRefKind discriminates the two addressing schemes for record groups.
type GroupRefKind int

const (
	// GroupRefBatch addresses rows sharing an explicit batch ID ("b:<id>").
	GroupRefBatch GroupRefKind = iota
	// GroupRefInferred addresses unbatched rows via an anchor row id
	// ("i:<minRowId>"); the grouping tuple is re-derived from the anchor.
	GroupRefInferred
)

// GroupRef identifies one logical record group.
type GroupRef struct {
	Kind     GroupRefKind
	BatchID  string
	AnchorID int64
}

// ParseGroupRef decodes a wire gid ("b:<batchId>" or "i:<anchorRowId>").
func ParseGroupRef(gid string) (GroupRef, error) {
	switch {
	case strings.HasPrefix(gid, "b:"):
		batchID := gid[2:]
		if batchID == "" {
			return GroupRef{}, fmt.Errorf("invalid gid")
		}
		return GroupRef{Kind: GroupRefBatch, BatchID: batchID}, nil
	case strings.HasPrefix(gid, "i:"):
		anchorID, err := strconv.ParseInt(gid[2:], 10, 64)
		if err != nil || anchorID <= 0 {
			return GroupRef{}, fmt.Errorf("invalid gid")
		}
		return GroupRef{Kind: GroupRefInferred, AnchorID: anchorID}, nil
	default:
		return GroupRef{}, fmt.Errorf("invalid gid")
	}
}

// String renders the wire form of the ref.
func (r GroupRef) String() string {
	if r.Kind == GroupRefBatch {
		return "b:" + r.BatchID
	}
	return "i:" + strconv.FormatInt(r.AnchorID, 10)
}

// Cursor is a keyset pagination token: the representative timestamp and
// row id of the last group on the previous page.
type Cursor struct {
	Ts    int64
	MaxID int64
}

// ParseCursor decodes the opaque "<tsMs>:<maxId>" token.
func ParseCursor(raw string) (Cursor, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return Cursor{}, fmt.Errorf("invalid cursor")
	}
	ts, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor")
	}
	maxID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return Cursor{}, fmt.Errorf("invalid cursor")
	}
	return Cursor{Ts: ts, MaxID: maxID}, nil
}

// String renders the wire form of the cursor.
func (c Cursor) String() string {
	return strconv.FormatInt(c.Ts, 10) + ":" + strconv.FormatInt(c.MaxID, 10)
}

// NewBatchID generates an opaque token linking the rows of one logical
// action. Time-based prefix plus random suffix; uniqueness is the only
// contract, nothing parses it back.
func NewBatchID() string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	return "bh_" + strconv.FormatInt(time.Now().UnixMilli(), 36) + "_" + hex.EncodeToString(buf)
}
