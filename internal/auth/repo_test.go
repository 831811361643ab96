package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"mangashelf/pkg/database"
)

func testRepo(t *testing.T) *Repo {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepo(db)
}

func TestCreateUserDuplicate(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	u := User{ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: "h"}
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	sameName := User{ID: "u2", Username: "alice", Email: "other@example.com", PasswordHash: "h"}
	if err := repo.CreateUser(ctx, sameName); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate username: got %v, want ErrDuplicate", err)
	}

	sameEmail := User{ID: "u3", Username: "bob", Email: "alice@example.com", PasswordHash: "h"}
	if err := repo.CreateUser(ctx, sameEmail); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate email: got %v, want ErrDuplicate", err)
	}

	got, err := repo.GetByUsername(ctx, "alice")
	if err != nil || got == nil || got.ID != "u1" {
		t.Errorf("original user lost: %+v, %v", got, err)
	}
}

func TestTokenVersionBump(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	u := User{ID: "u1", Username: "alice", Email: "alice@example.com", PasswordHash: "h"}
	if err := repo.CreateUser(ctx, u); err != nil {
		t.Fatalf("create: %v", err)
	}

	v, err := repo.GetTokenVersion(ctx, "u1")
	if err != nil || v != 0 {
		t.Fatalf("fresh token version = %d, %v, want 0", v, err)
	}

	if err := repo.BumpTokenVersion(ctx, "u1"); err != nil {
		t.Fatalf("bump: %v", err)
	}
	if v, _ = repo.GetTokenVersion(ctx, "u1"); v != 1 {
		t.Errorf("token version = %d, want 1 after bump", v)
	}

	if err := repo.BumpTokenVersion(ctx, "missing"); err == nil {
		t.Error("bumping an unknown user should fail")
	}
}
