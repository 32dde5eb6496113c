package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dental/dental/internal/platform/apperr"
)

func TestClassify_Nil(t *testing.T) {
	if err := Classify(nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestClassify_NoRows(t *testing.T) {
	err := Classify(fmt.Errorf("get plan: %w", pgx.ErrNoRows))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		t.Error("expected cause to be preserved")
	}
}

func TestClassify_PgCodes(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{"40001", apperr.ErrConflict},
		{"40P01", apperr.ErrConflict},
		{"23505", apperr.ErrConflict},
		{"23503", apperr.ErrNotFound},
		{"23514", apperr.ErrInvalidInput},
		{"22P02", apperr.ErrInvalidInput},
		{"22003", apperr.ErrInvalidInput},
	}
	for _, tt := range tests {
		err := Classify(fmt.Errorf("exec: %w", &pgconn.PgError{Code: tt.code}))
		if !errors.Is(err, tt.want) {
			t.Errorf("code %s: expected %v, got %v", tt.code, tt.want, err)
		}
	}
}

func TestClassify_UnknownCodePassesThrough(t *testing.T) {
	orig := &pgconn.PgError{Code: "42P01"}
	err := Classify(orig)
	if err != orig {
		t.Errorf("expected error to pass through unchanged, got %v", err)
	}
	if apperr.KindOf(err) != apperr.KindInternal {
		t.Errorf("expected internal kind, got %s", apperr.KindOf(err))
	}
}

func TestClassify_AlreadyClassified(t *testing.T) {
	orig := apperr.Invalid("bad tooth")
	if err := Classify(orig); err != orig {
		t.Errorf("expected classified error to pass through, got %v", err)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Classify(&pgconn.PgError{Code: "40001"})) {
		t.Error("expected serialization failure to be retryable")
	}
	if IsRetryable(Classify(pgx.ErrNoRows)) {
		t.Error("expected not found to be non-retryable")
	}
}

func TestTxFromContext_Nil(t *testing.T) {
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil tx from empty context")
	}
}

func TestTxFromContext_WithWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBTxKey, "not-a-tx")
	if tx := TxFromContext(ctx); tx != nil {
		t.Error("expected nil when context value is wrong type")
	}
}
