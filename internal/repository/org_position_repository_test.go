package repository

import (
	"errors"
	"testing"
	"time"

	"dms_orgsync/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/gorm"
)

var positionColumns = []string{"id", "code", "name", "level", "is_active", "created_at", "updated_at"}

func TestOrgPositionRepository_Create(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewOrgPositionRepository(gdb)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `org_positions`").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	p := &model.OrgPosition{Code: "RSM", Name: "Regional Sales Manager", Level: 2, IsActive: true}
	if err := repo.Create(p); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if p.ID == "" {
		t.Fatal("BeforeCreate should assign an id")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrgPositionRepository_Create_Invalid(t *testing.T) {
	gdb, _ := newMockDB(t)
	repo := NewOrgPositionRepository(gdb)

	if err := repo.Create(nil); err == nil {
		t.Fatal("expected error for nil position")
	}
	if err := repo.Create(&model.OrgPosition{Name: "no code"}); err == nil {
		t.Fatal("expected error for empty code")
	}
}

func TestOrgPositionRepository_FindByCode(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewOrgPositionRepository(gdb)
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `org_positions` WHERE code = \\? ORDER BY .* LIMIT \\?").
		WithArgs("ASM", 1).
		WillReturnRows(sqlmock.NewRows(positionColumns).AddRow("p-asm", "ASM", "Area Sales Manager", 3, true, now, now))

	p, err := repo.FindByCode("ASM")
	if err != nil {
		t.Fatalf("FindByCode() error: %v", err)
	}
	if p.ID != "p-asm" || p.Level != 3 {
		t.Fatalf("unexpected position: %+v", p)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOrgPositionRepository_FindByCode_NotFound(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewOrgPositionRepository(gdb)

	mock.ExpectQuery("SELECT \\* FROM `org_positions` WHERE code = \\? ORDER BY .* LIMIT \\?").
		WithArgs("CEO", 1).
		WillReturnRows(sqlmock.NewRows(positionColumns))

	_, err := repo.FindByCode("CEO")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got: %v", err)
	}
}

func TestOrgPositionRepository_FindAll(t *testing.T) {
	gdb, mock := newMockDB(t)
	repo := NewOrgPositionRepository(gdb)
	now := time.Now()

	mock.ExpectQuery("SELECT \\* FROM `org_positions` ORDER BY level ASC").
		WillReturnRows(sqlmock.NewRows(positionColumns).
			AddRow("p-ceo", "CEO", "Chief Executive Officer", 0, true, now, now).
			AddRow("p-tdv", "TDV", "Medical Representative", 5, true, now, now))

	positions, err := repo.FindAll()
	if err != nil {
		t.Fatalf("FindAll() error: %v", err)
	}
	if len(positions) != 2 || positions[0].Code != "CEO" {
		t.Fatalf("unexpected positions: %+v", positions)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
