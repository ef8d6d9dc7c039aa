package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func openTestDB(t *testing.T) (*sql.DB, context.Context) {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("DENUNCIAS_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("DENUNCIAS_TEST_DATABASE_URL is not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("ping postgres: %v", err)
	}
	if err := resetPublicSchema(ctx, db); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	return db, ctx
}

func TestMigrationsRoundTripPostgres(t *testing.T) {
	db, ctx := openTestDB(t)
	migrationsDir := filepath.Join("..", "..", "db", "migrations")

	applied, err := ApplyMigrations(ctx, db, migrationsDir)
	if err != nil {
		t.Fatalf("apply up migrations (pass 1): %v", err)
	}
	if len(applied) == 0 {
		t.Fatal("expected migrations to be applied on an empty schema")
	}

	again, err := ApplyMigrations(ctx, db, migrationsDir)
	if err != nil {
		t.Fatalf("re-apply migrations: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no-op second pass, applied %v", again)
	}

	if err := applyDownMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply down migrations: %v", err)
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM schema_migrations`); err != nil {
		t.Fatalf("clear schema_migrations: %v", err)
	}
	if _, err := ApplyMigrations(ctx, db, migrationsDir); err != nil {
		t.Fatalf("apply up migrations (pass 2): %v", err)
	}
}

func TestComplaintStorePostgres(t *testing.T) {
	db, ctx := openTestDB(t)
	if _, err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	s := NewPostgresStore(db)

	citizen, err := s.CreateUser(ctx, User{FirstName: "Ana", LastName: "Pérez", NationalID: "11111111-1", Email: "ana@example.com", PasswordHash: "x", Role: "citizen"})
	if err != nil {
		t.Fatalf("create citizen: %v", err)
	}
	officer, err := s.CreateUser(ctx, User{FirstName: "Luis", LastName: "Soto", NationalID: "22222222-2", Email: "luis@example.com", PasswordHash: "x", Role: "authority"})
	if err != nil {
		t.Fatalf("create authority: %v", err)
	}
	if _, err := s.CreateUser(ctx, User{FirstName: "Otra", LastName: "Ana", NationalID: "33333333-3", Email: "ana@example.com", PasswordHash: "x", Role: "citizen"}); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected duplicate user, got %v", err)
	}

	categories, err := s.ListCategories(ctx)
	if err != nil || len(categories) == 0 {
		t.Fatalf("expected seeded categories, got %v (%v)", categories, err)
	}

	lat, lng := -33.45, -70.66
	created, err := s.InsertComplaint(ctx, Complaint{
		Folio: "DEN-2026-0001", Title: "Bache", Description: "Bache grande en la calzada",
		CategoryID: categories[0].ID, Latitude: &lat, Longitude: &lng, OwnerID: citizen.ID,
	})
	if err != nil {
		t.Fatalf("insert complaint: %v", err)
	}
	if created.Status != "received" || created.ID == 0 {
		t.Fatalf("unexpected created complaint: %+v", created)
	}

	_, err = s.InsertComplaint(ctx, Complaint{Folio: "DEN-2026-0001", Title: "Otro", Description: "Otro", CategoryID: categories[0].ID, OwnerID: citizen.ID})
	if !errors.Is(err, ErrDuplicateFolio) {
		t.Fatalf("expected duplicate folio, got %v", err)
	}
	_, err = s.InsertComplaint(ctx, Complaint{Folio: "DEN-2026-0002", Title: "Otro", Description: "Otro", CategoryID: 999999, OwnerID: citizen.ID})
	if !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("expected unknown category, got %v", err)
	}

	if err := s.InsertImage(ctx, created.ID, "/uploads/first.jpg"); err != nil {
		t.Fatalf("insert image: %v", err)
	}
	if err := s.InsertImage(ctx, created.ID, "/uploads/second.jpg"); err != nil {
		t.Fatalf("insert second image: %v", err)
	}

	loaded, err := s.GetComplaint(ctx, created.ID)
	if err != nil {
		t.Fatalf("get complaint: %v", err)
	}
	if loaded.ImageURL == nil || *loaded.ImageURL != "/uploads/first.jpg" {
		t.Fatalf("expected first image, got %v", loaded.ImageURL)
	}
	if loaded.CategoryName != categories[0].Name || loaded.OwnerFirstName != "Ana" {
		t.Fatalf("unexpected joined fields: %+v", loaded)
	}
	if _, err := s.GetComplaint(ctx, 999999); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected no rows, got %v", err)
	}

	ok, err := s.UpdateComplaintStatus(ctx, created.ID, "received", "in_progress", nil)
	if err != nil || !ok {
		t.Fatalf("first transition: ok=%v err=%v", ok, err)
	}
	ok, err = s.UpdateComplaintStatus(ctx, created.ID, "received", "rejected", nil)
	if err != nil || ok {
		t.Fatalf("stale transition must not match: ok=%v err=%v", ok, err)
	}
	rating := 4
	if ok, err := s.UpdateComplaintStatus(ctx, created.ID, "in_progress", "resolved", &rating); err != nil || !ok {
		t.Fatalf("resolve: ok=%v err=%v", ok, err)
	}
	resolved, err := s.GetComplaint(ctx, created.ID)
	if err != nil {
		t.Fatalf("reload complaint: %v", err)
	}
	if resolved.Status != "resolved" || resolved.Rating == nil || *resolved.Rating != 4 {
		t.Fatalf("unexpected resolved complaint: %+v", resolved)
	}
	if resolved.UpdatedAt.Before(resolved.CreatedAt) {
		t.Fatalf("updated_at before created_at")
	}

	for _, body := range []string{"primero", "segundo", "tercero"} {
		author := citizen.ID
		if body == "segundo" {
			author = officer.ID
		}
		if _, err := s.InsertComment(ctx, Comment{ComplaintID: created.ID, AuthorID: author, Body: body, IsAuthority: author == officer.ID}); err != nil {
			t.Fatalf("insert comment: %v", err)
		}
	}
	comments, err := s.ListComments(ctx, created.ID)
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if len(comments) != 3 || comments[0].Body != "primero" || comments[2].Body != "tercero" || !comments[1].IsAuthority {
		t.Fatalf("unexpected comment order: %+v", comments)
	}

	counts, err := s.CountComplaintsByStatus(ctx, citizen.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts.Total != 1 || counts.Resolved != 1 || counts.Received != 0 {
		t.Fatalf("unexpected counts: %+v", counts)
	}

	mine, err := s.ListComplaintsByOwner(ctx, officer.ID)
	if err != nil || len(mine) != 0 {
		t.Fatalf("expected no complaints for officer, got %d (%v)", len(mine), err)
	}
	filtered, err := s.ListComplaints(ctx, ComplaintFilter{Status: "resolved", CategoryID: categories[0].ID})
	if err != nil || len(filtered) != 1 {
		t.Fatalf("expected one filtered complaint, got %d (%v)", len(filtered), err)
	}
}

func resetPublicSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `DROP SCHEMA IF EXISTS public CASCADE; CREATE SCHEMA public;`)
	return err
}

func applyDownMigrations(ctx context.Context, db *sql.DB, migrationsDir string) error {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return err
	}

	pattern := regexp.MustCompile(`^(\d+)_.*\.down\.sql$`)
	type migration struct {
		version string
		path    string
	}
	downs := make([]migration, 0)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		downs = append(downs, migration{version: match[1], path: filepath.Join(migrationsDir, entry.Name())})
	}
	sort.Slice(downs, func(i, j int) bool {
		return downs[i].version > downs[j].version
	})

	for _, down := range downs {
		sqlBytes, err := os.ReadFile(down.path)
		if err != nil {
			return err
		}
		sqlText := strings.TrimSpace(string(sqlBytes))
		if sqlText == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, sqlText); err != nil {
			return err
		}
	}
	return nil
}
