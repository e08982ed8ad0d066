package service

import (
	"testing"

	"github.com/affiliate-next/internal/constants"
	"github.com/affiliate-next/internal/repository"
	"gorm.io/gorm"
)

func setupPlacementTest(t *testing.T) (*PlacementResolver, *gorm.DB) {
	t.Helper()

	db := openServiceTestDB(t, "placement")
	return NewPlacementResolver(repository.NewAffiliateRepository(db)), db
}

func TestResolveEmptyTreeReturnsNil(t *testing.T) {
	resolver, _ := setupPlacementTest(t)

	placement, err := resolver.Resolve(nil, 0)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if placement != nil {
		t.Errorf("placement = %+v, want nil for empty tree", placement)
	}
}

func TestResolveFillsLeftBeforeRight(t *testing.T) {
	resolver, db := setupPlacementTest(t)
	root := createTestAffiliate(t, db, "ROOT0001", nil, "")

	placement, err := resolver.Resolve(&root.ID, 0)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if placement == nil || placement.ParentID != root.ID || placement.Position != constants.TreePositionLeft {
		t.Fatalf("placement = %+v, want left slot of root", placement)
	}

	createTestAffiliate(t, db, "LEFT0001", &root.ID, constants.TreePositionLeft)

	placement, err = resolver.Resolve(&root.ID, 0)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if placement == nil || placement.ParentID != root.ID || placement.Position != constants.TreePositionRight {
		t.Fatalf("placement = %+v, want right slot of root", placement)
	}
}

func TestResolveDescendsBreadthFirst(t *testing.T) {
	resolver, db := setupPlacementTest(t)
	root := createTestAffiliate(t, db, "ROOT0001", nil, "")
	left := createTestAffiliate(t, db, "LEFT0001", &root.ID, constants.TreePositionLeft)
	createTestAffiliate(t, db, "RIGHT001", &root.ID, constants.TreePositionRight)

	placement, err := resolver.Resolve(&root.ID, 0)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	// 根已满，下一层左子节点的左槽优先
	if placement == nil || placement.ParentID != left.ID || placement.Position != constants.TreePositionLeft {
		t.Fatalf("placement = %+v, want left slot of %d", placement, left.ID)
	}
}

func TestResolveMissingReferrerFallsBackToRoot(t *testing.T) {
	resolver, db := setupPlacementTest(t)
	root := createTestAffiliate(t, db, "ROOT0001", nil, "")

	ghost := uint(9999)
	placement, err := resolver.Resolve(&ghost, 0)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if placement == nil || placement.ParentID != root.ID {
		t.Fatalf("placement = %+v, want fallback to root %d", placement, root.ID)
	}
}

func TestResolveNeverReturnsSelfAsParent(t *testing.T) {
	resolver, db := setupPlacementTest(t)
	root := createTestAffiliate(t, db, "ROOT0001", nil, "")

	// 起点回退到树根，而树根正是待安置节点本身：不得返回自身槽位
	selfID := root.ID
	placement, err := resolver.Resolve(&selfID, root.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if placement != nil {
		t.Fatalf("placement = %+v, want nil when only reachable parent is the node itself", placement)
	}
}
