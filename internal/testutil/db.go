// Package testutil provides an in-memory database for package tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/collabify/backend/internal/config"
	"github.com/collabify/backend/internal/models"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

// NewDB returns a migrated, isolated in-memory sqlite database that is closed with the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, dbSeq.Add(1))

	db, err := models.Open(&config.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	// One connection keeps the in-memory database alive and serialises writers
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.AutoMigrateDB(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// CreateUser inserts an onboarded user with the given username.
func CreateUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	handle := username
	user := &models.User{
		Email:    username + "@example.edu",
		Name:     strings.ToUpper(username[:1]) + username[1:],
		Username: &handle,
		Skills:   []string{"go"},
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// CreateProject inserts an active project owned by ownerID.
func CreateProject(t *testing.T, db *gorm.DB, ownerID uint, title string, teamSize *int) *models.Project {
	t.Helper()

	project := &models.Project{
		Title:             title,
		Description:       "A project used by tests to exercise the workflow",
		TechStack:         []string{"go"},
		Tags:              []string{"test"},
		EstimatedTeamSize: teamSize,
		Status:            models.ProjectStatusActive,
		CreatedBy:         ownerID,
	}
	if err := db.Create(project).Error; err != nil {
		t.Fatalf("create project %s: %v", title, err)
	}
	return project
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
