package repository

import (
	"github.com/askbase/askbase/internal/model"
	"gorm.io/gorm"
)

// FileRepository 知识库文件仓库
type FileRepository struct {
	db *gorm.DB
}

// NewFileRepository 创建知识库文件仓库
func NewFileRepository(db *gorm.DB) *FileRepository {
	return &FileRepository{db: db}
}

// Upsert 创建或更新文件记录
func (r *FileRepository) Upsert(file *model.KnowledgeBaseFile) error {
	return r.db.Save(file).Error
}

// GetByFilename 根据文件名获取文件记录
func (r *FileRepository) GetByFilename(filename string) (*model.KnowledgeBaseFile, error) {
	var file model.KnowledgeBaseFile
	err := r.db.Where("filename = ?", filename).First(&file).Error
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// List 按修改时间倒序列出所有文件记录
func (r *FileRepository) List() ([]*model.KnowledgeBaseFile, error) {
	var files []*model.KnowledgeBaseFile
	err := r.db.Order("modified_at DESC").Find(&files).Error
	return files, err
}

// Delete 删除文件记录
func (r *FileRepository) Delete(filename string) error {
	return r.db.Delete(&model.KnowledgeBaseFile{}, "filename = ?", filename).Error
}

// Count 统计文件总数
func (r *FileRepository) Count() (int64, error) {
	var total int64
	err := r.db.Model(&model.KnowledgeBaseFile{}).Count(&total).Error
	return total, err
}
