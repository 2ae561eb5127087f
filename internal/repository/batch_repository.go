package repository

import (
	"github.com/askbase/askbase/internal/model"
	"gorm.io/gorm"
)

// BatchRepository 摄取批次仓库
type BatchRepository struct {
	db *gorm.DB
}

// NewBatchRepository 创建摄取批次仓库
func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create 创建批次记录
func (r *BatchRepository) Create(batch *model.IngestionBatch) error {
	return r.db.Create(batch).Error
}

// GetByID 根据批次ID获取批次
func (r *BatchRepository) GetByID(batchID string) (*model.IngestionBatch, error) {
	var batch model.IngestionBatch
	err := r.db.Where("batch_id = ?", batchID).First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

// Update 更新批次记录
func (r *BatchRepository) Update(batch *model.IngestionBatch) error {
	return r.db.Save(batch).Error
}

// Delete 删除批次记录
func (r *BatchRepository) Delete(batchID string) error {
	return r.db.Delete(&model.IngestionBatch{}, "batch_id = ?", batchID).Error
}
