package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/alimini-next/internal/models"
	"github.com/alimini-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupFormIDServiceTest(t *testing.T) (*FormIDService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:form_id_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.FormID{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	return NewFormIDService(repository.NewFormIDRepository(db)), db
}

func TestFormIDServiceIssue(t *testing.T) {
	svc, _ := setupFormIDServiceTest(t)
	record, err := svc.Issue(1, 10, "form-token-1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if record.ID == 0 || record.UsedCount != 0 {
		t.Fatalf("invalid record: %+v", record)
	}
	wantExpire := time.Now().Add(7 * 24 * time.Hour)
	if record.ExpireAt.Before(wantExpire.Add(-time.Minute)) || record.ExpireAt.After(wantExpire.Add(time.Minute)) {
		t.Fatalf("expire_at 不在 7 天附近: %v", record.ExpireAt)
	}
}

func TestFormIDServiceAcquireExhaustsAfterThreeUses(t *testing.T) {
	svc, _ := setupFormIDServiceTest(t)
	if _, err := svc.Issue(1, 10, "form-token-1"); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	for want := 1; want <= 3; want++ {
		record, err := svc.AcquireConsumable(1, 10)
		if err != nil {
			t.Fatalf("acquire %d failed: %v", want, err)
		}
		if record == nil {
			t.Fatalf("acquire %d 应当命中", want)
		}
		if record.UsedCount != want {
			t.Fatalf("acquire %d: used_count=%d", want, record.UsedCount)
		}
	}
	record, err := svc.AcquireConsumable(1, 10)
	if err != nil {
		t.Fatalf("acquire 4 failed: %v", err)
	}
	if record != nil {
		t.Fatalf("第四次获取应当为空，得到: %+v", record)
	}
}

func TestFormIDServiceAcquirePicksSoonestExpiry(t *testing.T) {
	svc, db := setupFormIDServiceTest(t)
	now := time.Now()
	later := models.FormID{MiniProgramID: 1, UserID: 10, Token: "later", ExpireAt: now.Add(6 * 24 * time.Hour)}
	sooner := models.FormID{MiniProgramID: 1, UserID: 10, Token: "sooner", ExpireAt: now.Add(time.Hour)}
	if err := db.Create(&later).Error; err != nil {
		t.Fatalf("seed later failed: %v", err)
	}
	if err := db.Create(&sooner).Error; err != nil {
		t.Fatalf("seed sooner failed: %v", err)
	}

	record, err := svc.AcquireConsumable(1, 10)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if record == nil || record.Token != "sooner" {
		t.Fatalf("应当选中最先过期的记录，得到: %+v", record)
	}
}

func TestFormIDServiceAcquireSkipsExpiredAndOtherUsers(t *testing.T) {
	svc, db := setupFormIDServiceTest(t)
	now := time.Now()
	expired := models.FormID{MiniProgramID: 1, UserID: 10, Token: "expired", ExpireAt: now.Add(-time.Minute)}
	otherUser := models.FormID{MiniProgramID: 1, UserID: 11, Token: "other", ExpireAt: now.Add(time.Hour)}
	if err := db.Create(&expired).Error; err != nil {
		t.Fatalf("seed expired failed: %v", err)
	}
	if err := db.Create(&otherUser).Error; err != nil {
		t.Fatalf("seed other failed: %v", err)
	}

	record, err := svc.AcquireConsumable(1, 10)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if record != nil {
		t.Fatalf("不应命中过期或他人记录: %+v", record)
	}
}

func TestFormIDServiceSweepThreshold(t *testing.T) {
	svc, db := setupFormIDServiceTest(t)
	now := time.Now()
	kept := models.FormID{MiniProgramID: 1, UserID: 10, Token: "kept", ExpireAt: now.Add(-6 * 24 * time.Hour), UsedCount: 0}
	swept := models.FormID{MiniProgramID: 1, UserID: 10, Token: "swept", ExpireAt: now.Add(-8 * 24 * time.Hour), UsedCount: 0}
	usedKept := models.FormID{MiniProgramID: 1, UserID: 10, Token: "used", ExpireAt: now.Add(-30 * 24 * time.Hour), UsedCount: 2}
	for _, record := range []*models.FormID{&kept, &swept, &usedKept} {
		if err := db.Create(record).Error; err != nil {
			t.Fatalf("seed failed: %v", err)
		}
	}

	count, err := svc.SweepExpired()
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("期望删除 1 条，实际: %d", count)
	}
	var remaining []models.FormID
	if err := db.Find(&remaining).Error; err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("期望保留 2 条，实际: %d", len(remaining))
	}
	for _, record := range remaining {
		if record.Token == "swept" {
			t.Fatalf("过期未消费记录没有被清理: %+v", record)
		}
	}
}
