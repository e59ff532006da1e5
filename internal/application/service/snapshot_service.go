package service

import (
	"context"
	"encoding/json"

	"botty/internal/application/port"
	"botty/internal/domain/model"
)

type SnapshotService struct {
	repo port.Repository
}

func NewSnapshotService(repo port.Repository) *SnapshotService {
	return &SnapshotService{repo: repo}
}

// SavePortfolio serializes the snapshot and stores it with its own
// timestamp semantics left to the repository.
func (s *SnapshotService) SavePortfolio(ctx context.Context, ts int64, p model.Portfolio) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.repo.InsertSnapshot(ctx, ts, string(payload))
}
