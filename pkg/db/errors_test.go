package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestIsUniqueViolationPostgresTyped(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "idx_materials_name"}
	if !IsUniqueViolation(dup, "idx_materials_name") {
		t.Fatal("expected match on typed pg error with named constraint")
	}
	if IsUniqueViolation(dup, "idx_project_members_project_user") {
		t.Fatal("typed pg error must not match a different constraint")
	}
	if !IsUniqueViolation(dup, "") {
		t.Fatal("expected match without a constraint name")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatal("foreign key violation is not a unique violation")
	}

	wrapped := fmt.Errorf("db: insert material: %w", dup)
	if !IsUniqueViolation(wrapped, "idx_materials_name") {
		t.Fatal("expected match through wrapping")
	}
}

func TestIsUniqueViolationLibPQ(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: "idx_materials_name"}
	if !IsUniqueViolation(dup, "idx_materials_name") {
		t.Fatal("expected match on pq error with named constraint")
	}
	if IsUniqueViolation(&pq.Error{Code: "23505", Constraint: "other"}, "idx_materials_name") {
		t.Fatal("pq error must not match a different constraint")
	}
}

func TestIsUniqueViolationSQLiteMessage(t *testing.T) {
	err := errors.New("UNIQUE constraint failed: project_members.project_id, project_members.user_id")
	if !IsUniqueViolation(err, "idx_project_members_project_user") {
		t.Fatal("sqlite unique failures carry no constraint name and must still match")
	}
	if !IsUniqueViolation(errors.New("UNIQUE constraint failed: materials.name"), "idx_materials_name") {
		t.Fatal("expected match for sqlite material name violation")
	}
	if IsUniqueViolation(errors.New("NOT NULL constraint failed: materials.name"), "idx_materials_name") {
		t.Fatal("non-unique sqlite failures must not match")
	}
}

// opaqueWrap mimics an error wrapper whose message does not echo its cause.
type opaqueWrap struct {
	msg   string
	cause error
}

func (w *opaqueWrap) Error() string { return w.msg }
func (w *opaqueWrap) Unwrap() error { return w.cause }

func TestIsUniqueViolationThroughOpaqueWrapper(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed: purchase_orders.po_number")
	err := &opaqueWrap{msg: "db: insert purchase order", cause: cause}
	if !IsUniqueViolation(err, "idx_purchase_orders_po_number") {
		t.Fatal("expected match on a cause hidden behind an opaque wrapper")
	}
}
