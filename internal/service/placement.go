package service

import (
	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/models"
	"github.com/affiliate-next/internal/repository"
)

// Placement 排位结果
type Placement struct {
	ParentID uint
	Position string
}

// PlacementResolver 二叉树排位解析器。
// 只读遍历当前树结构，写入由调用方在事务内完成，
// 槽位冲突由 (parent_id, position) 唯一索引兜底。
type PlacementResolver struct {
	affiliateRepo repository.AffiliateRepository
}

// NewPlacementResolver 创建排位解析器
func NewPlacementResolver(affiliateRepo repository.AffiliateRepository) *PlacementResolver {
	return &PlacementResolver{affiliateRepo: affiliateRepo}
}

// Resolve 计算新成员的挂载位置。
// 从推荐人开始逐层扫描，左槽优先；推荐人缺失或已被移除时回退到树根；
// 树为空时返回 nil，新成员直接成为根节点。
func (r *PlacementResolver) Resolve(referrerID *uint, excludeID uint) (*Placement, error) {
	if r == nil || r.affiliateRepo == nil {
		return nil, ErrServiceUnavailable
	}

	start, err := r.resolveStart(referrerID, excludeID)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return nil, nil
	}

	queue := []models.Affiliate{*start}
	visited := map[uint]bool{start.ID: true}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		children, err := r.affiliateRepo.ListChildren(node.ID)
		if err != nil {
			return nil, err
		}

		// 被排除的节点不能成为父节点，但其子树仍可继续扫描
		if node.ID != excludeID {
			occupied := map[string]bool{}
			for _, child := range children {
				occupied[child.Position] = true
			}
			if !occupied[constants.TreePositionLeft] {
				return &Placement{ParentID: node.ID, Position: constants.TreePositionLeft}, nil
			}
			if !occupied[constants.TreePositionRight] {
				return &Placement{ParentID: node.ID, Position: constants.TreePositionRight}, nil
			}
		}

		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			queue = append(queue, child)
		}
	}

	// 可达节点全部被排除，调用方将新成员挂为根
	return nil, nil
}

// resolveStart 确定扫描起点：推荐人优先，缺失时回退树根
func (r *PlacementResolver) resolveStart(referrerID *uint, excludeID uint) (*models.Affiliate, error) {
	if referrerID != nil && *referrerID != 0 && *referrerID != excludeID {
		referrer, err := r.affiliateRepo.GetByID(*referrerID)
		if err != nil {
			return nil, err
		}
		if referrer != nil && referrer.Status == constants.AffiliateStatusApproved {
			return referrer, nil
		}
	}
	return r.affiliateRepo.GetRoot()
}
