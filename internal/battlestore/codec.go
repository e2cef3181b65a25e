package battlestore

import (
	"encoding/json"
	"fmt"

	"github.com/park285/pokeleague/internal/domain"
)

// encodeSides serializes both side snapshots in the current layout.
func encodeSides(s domain.Snapshot) (version int, a, b []byte, err error) {
	a, err = json.Marshal(s.A)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("encode side a: %w", err)
	}
	b, err = json.Marshal(s.B)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("encode side b: %w", err)
	}
	return domain.SnapshotVersion, a, b, nil
}

// decodeSides reads side snapshots written by any layout version and
// returns them upgraded to the current one.
func decodeSides(version int, a, b []byte) (domain.Snapshot, error) {
	sa, err := domain.DecodeSideSnapshot(a, version)
	if err != nil {
		return domain.Snapshot{}, err
	}
	sb, err := domain.DecodeSideSnapshot(b, version)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap := domain.Snapshot{Version: version, A: sa, B: sb}
	snap.Upgrade()
	return snap, nil
}

func activeID(s domain.SideSnapshot) *int64 {
	if s.Active == nil {
		return nil
	}
	id := s.Active.ID
	return &id
}
