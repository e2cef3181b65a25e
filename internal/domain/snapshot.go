package domain

import (
	"encoding/json"
	"fmt"
)

// SnapshotVersion is the layout written by this build.
//
//	v1: active combatant per side only (legacy rows)
//	v2: active combatant, HP of every roster member and the pending move
const SnapshotVersion = 2

// SideSnapshot is one side's in-battle state.
type SideSnapshot struct {
	Active   *Pokemon      `json:"active,omitempty"`
	RosterHP map[int64]int `json:"rosterHp,omitempty"`
	Selected string        `json:"selectedMove,omitempty"`
}

type Snapshot struct {
	Version int          `json:"version"`
	A       SideSnapshot `json:"a"`
	B       SideSnapshot `json:"b"`
}

func (s SideSnapshot) Clone() SideSnapshot {
	c := s
	if s.Active != nil {
		p := s.Active.Clone()
		c.Active = &p
	}
	if s.RosterHP != nil {
		c.RosterHP = make(map[int64]int, len(s.RosterHP))
		for k, v := range s.RosterHP {
			c.RosterHP[k] = v
		}
	}
	return c
}

func (s Snapshot) Clone() Snapshot {
	return Snapshot{Version: s.Version, A: s.A.Clone(), B: s.B.Clone()}
}

// Empty reports whether nothing was ever captured for either side.
func (s Snapshot) Empty() bool {
	return s.A.Active == nil && s.B.Active == nil
}

// DecodeSideSnapshot reads a persisted side state of the given layout version.
// A v1 payload is a bare Pokemon object (or "{}" before the battle started);
// it is lifted into a SideSnapshot without roster HP so hydration falls back
// to full HP for the bench.
func DecodeSideSnapshot(raw []byte, version int) (SideSnapshot, error) {
	var out SideSnapshot
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if version >= 2 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return out, fmt.Errorf("decode side snapshot v%d: %w", version, err)
		}
		return out, nil
	}
	var p Pokemon
	if err := json.Unmarshal(raw, &p); err != nil {
		return out, fmt.Errorf("decode side snapshot v1: %w", err)
	}
	if p.ID != 0 {
		out.Active = &p
	}
	return out, nil
}

// Upgrade rewrites a legacy snapshot in the current layout.
func (s *Snapshot) Upgrade() {
	if s.Version < SnapshotVersion {
		s.Version = SnapshotVersion
	}
}
