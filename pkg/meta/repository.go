package meta

import (
	"context"
	"encoding/json"
	"errors"

	"anchorage/pkg/apperr"
	"anchorage/pkg/core"
	"anchorage/pkg/storage"
	"anchorage/pkg/types"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ storage.NodeStore = (*Repository)(nil)

// Repository 是基于 SQL 的 NodeStore
type Repository struct {
	db *DB
}

func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// Put 幂等写入：ON CONFLICT DO NOTHING，已存在的记录不会被覆盖
func (r *Repository) Put(ctx context.Context, id types.Hash, node *core.Node) error {
	blobs, err := json.Marshal(node.Blobs)
	if err != nil {
		return apperr.Wrap(err, "failed to serialize node", apperr.Internal).WithOp("meta.PutNode")
	}

	rec := NodeRecord{
		ID:    string(id),
		Type:  string(node.Type),
		Blobs: datatypes.JSON(blobs),
	}
	err = r.db.GetConn().WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
	if err != nil {
		return apperr.Wrap(err, "failed to insert node", apperr.Internal).WithOp("meta.PutNode")
	}
	return nil
}

// Get 按 ID 读取 Node
func (r *Repository) Get(ctx context.Context, id types.Hash) (*core.Node, error) {
	var rec NodeRecord
	err := r.db.GetConn().WithContext(ctx).
		Where("id = ?", string(id)).
		First(&rec).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Newf(apperr.NotFound, "node %s not found", id).WithOp("meta.GetNode")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "failed to query node", apperr.Internal).WithOp("meta.GetNode")
	}

	var blobs []types.Hash
	if err := json.Unmarshal(rec.Blobs, &blobs); err != nil {
		return nil, apperr.Wrap(err, "failed to parse node blobs", apperr.Internal).WithOp("meta.GetNode")
	}

	return &core.Node{
		ID:    types.Hash(rec.ID),
		Type:  core.NodeType(rec.Type),
		Blobs: blobs,
	}, nil
}
