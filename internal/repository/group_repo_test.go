package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeRow struct {
	id  int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if ptr, ok := dest[0].(*int64); ok {
		*ptr = r.id
	}
	return nil
}

// fakeTx stubs the few pgx.Tx methods Create touches; the embedded
// interface covers the rest.
type fakeTx struct {
	pgx.Tx
	failMemberID int64
	inserted     []int64
	committed    bool
	rolledBack   bool
}

func (t *fakeTx) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	if strings.Contains(sql, "INSERT INTO groups") {
		return fakeRow{id: 7}
	}
	return fakeRow{err: pgx.ErrNoRows}
}

func (t *fakeTx) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if strings.Contains(sql, "INSERT INTO group_members") {
		userID := args[1].(int64)
		if t.failMemberID != 0 && userID == t.failMemberID {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23503"}
		}
		t.inserted = append(t.inserted, userID)
	}
	return pgconn.CommandTag{}, nil
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type fakeDB struct {
	DBTX
	tx *fakeTx
}

func (db *fakeDB) Begin(_ context.Context) (pgx.Tx, error) {
	return db.tx, nil
}

func TestCreateGroupCommitsAllRows(t *testing.T) {
	tx := &fakeTx{}
	repo := NewGroupRepository(&fakeDB{tx: tx})

	group, err := repo.Create(context.Background(), "takım", 5, []int64{6, 7})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !tx.committed || tx.rolledBack {
		t.Fatalf("expected a committed transaction, committed=%v rolledBack=%v", tx.committed, tx.rolledBack)
	}
	if group.ID != 7 || len(group.Admins) != 1 || group.Admins[0] != 5 {
		t.Fatalf("unexpected group: %+v", group)
	}
	if len(tx.inserted) != 3 || tx.inserted[0] != 5 || tx.inserted[1] != 6 || tx.inserted[2] != 7 {
		t.Fatalf("unexpected membership inserts: %v", tx.inserted)
	}
}

func TestCreateGroupRollsBackOnFailedMemberInsert(t *testing.T) {
	tx := &fakeTx{failMemberID: 999}
	repo := NewGroupRepository(&fakeDB{tx: tx})

	_, err := repo.Create(context.Background(), "takım", 5, []int64{6, 999})
	if err == nil {
		t.Fatal("expected the member insert failure to surface")
	}
	if tx.committed {
		t.Fatal("expected no commit after a failed member insert")
	}
	if !tx.rolledBack {
		t.Fatal("expected the transaction rolled back, leaving no group behind")
	}
}
