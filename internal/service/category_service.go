// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"nursing-archive-go/internal/model"
	"nursing-archive-go/internal/repository"
	"nursing-archive-go/pkg/log"
)

// categoryCacheTTL 分类名称解析缓存的过期时间。
// 分类属于读多写少的参考数据，短 TTL 足以消化上传热路径上的重复查询。
const categoryCacheTTL = 5 * time.Minute

// CategoryService 接口定义了文档分类相关的业务操作。
type CategoryService interface {
	// ResolveName 把分类名称解析为分类记录，只命中启用状态的分类。
	ResolveName(ctx context.Context, name string) (*model.DocumentCategory, error)
	// ListActive 返回所有启用的分类，并附带每个分类下的实时档案数。
	ListActive(ctx context.Context) ([]model.CategoryWithCount, error)
}

type categoryService struct {
	categoryRepo repository.CategoryRepository
	rdb          *redis.Client
}

// NewCategoryService 创建一个新的 CategoryService 实例。
// rdb 可以为 nil，此时不启用名称解析缓存。
func NewCategoryService(categoryRepo repository.CategoryRepository, rdb *redis.Client) CategoryService {
	return &categoryService{categoryRepo: categoryRepo, rdb: rdb}
}

// cacheKey 生成分类名称解析的 Redis 键。
func (s *categoryService) cacheKey(name string) string {
	return "archive:category:" + name
}

// ResolveName 把分类名称解析为分类记录。
// 先查 Redis 缓存，未命中再回源数据库并写回缓存。缓存故障只降级为直查数据库。
func (s *categoryService) ResolveName(ctx context.Context, name string) (*model.DocumentCategory, error) {
	if s.rdb != nil {
		cached, err := s.rdb.Get(ctx, s.cacheKey(name)).Bytes()
		if err == nil {
			var category model.DocumentCategory
			if jsonErr := json.Unmarshal(cached, &category); jsonErr == nil {
				return &category, nil
			}
		} else if err != redis.Nil {
			log.Warnf("[CategoryService] 读取分类缓存失败, name: %s, err: %v", name, err)
		}
	}

	category, err := s.categoryRepo.FindActiveByName(name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}

	if s.rdb != nil {
		if data, jsonErr := json.Marshal(category); jsonErr == nil {
			if err := s.rdb.Set(ctx, s.cacheKey(name), data, categoryCacheTTL).Err(); err != nil {
				log.Warnf("[CategoryService] 写入分类缓存失败, name: %s, err: %v", name, err)
			}
		}
	}
	return category, nil
}

// ListActive 返回所有启用的分类及其实时档案数。
// 这里不走缓存：档案数必须反映当前数据库状态。
func (s *categoryService) ListActive(ctx context.Context) ([]model.CategoryWithCount, error) {
	categories, err := s.categoryRepo.FindActive()
	if err != nil {
		return nil, err
	}

	result := make([]model.CategoryWithCount, 0, len(categories))
	for _, category := range categories {
		count, err := s.categoryRepo.CountDocuments(category.CategoryID)
		if err != nil {
			return nil, err
		}
		result = append(result, model.CategoryWithCount{
			DocumentCategory: category,
			DocumentCount:    count,
		})
	}
	return result, nil
}
