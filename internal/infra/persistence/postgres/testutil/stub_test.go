package testutil

import (
	"context"
	"errors"
	"testing"
)

const upsert = `INSERT INTO state(bucket,payload) VALUES($1,$2) ON CONFLICT(bucket) DO UPDATE SET payload=EXCLUDED.payload`

func TestStateDBUpsertsInsideTransactions(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStateDB()
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS state (\n\tbucket TEXT PRIMARY KEY\n)"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !conn.Created() {
		t.Fatalf("expected state table to be created")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	for _, payload := range []string{"{}", `{"p1":{}}`} {
		if _, err := tx.ExecContext(ctx, upsert, "person", []byte(payload)); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if len(conn.Buckets()) != 0 {
		t.Fatalf("staged upserts must not be visible before commit")
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got, ok := conn.Bucket("person"); !ok || string(got) != `{"p1":{}}` {
		t.Fatalf("expected last upsert to win, got %q %v", got, ok)
	}

	tx, err = db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, "tag", []byte("{}")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if _, ok := conn.Bucket("tag"); ok {
		t.Fatalf("rolled back upsert leaked")
	}
}

func TestStateDBSelectsSortedBuckets(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStateDB()
	defer func() { _ = db.Close() }()
	conn.SetBucket("tag", []byte("{}"))
	conn.SetBucket("person", []byte(`{"p1":{}}`))

	rows, err := db.QueryContext(ctx, "SELECT bucket, payload FROM state")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	defer func() { _ = rows.Close() }()
	var got []string
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, bucket)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(got) != 2 || got[0] != "person" || got[1] != "tag" {
		t.Fatalf("unexpected buckets %v", got)
	}
	if n := len(conn.Statements()); n != 1 {
		t.Fatalf("expected one recorded statement, got %d", n)
	}
}

func TestStateDBFailures(t *testing.T) {
	ctx := context.Background()
	db, conn := NewStateDB()
	defer func() { _ = db.Close() }()

	if _, err := db.ExecContext(ctx, "DELETE FROM state"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}

	conn.FailBucket = "person"
	if _, err := db.ExecContext(ctx, upsert, "person", []byte("{}")); err == nil {
		t.Fatalf("expected upsert failure")
	}
	conn.FailBucket = ""

	conn.FailCommit = true
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.ExecContext(ctx, upsert, "event", []byte("{}")); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := tx.Commit(); err == nil {
		t.Fatalf("expected commit failure")
	}
	if _, ok := conn.Bucket("event"); ok {
		t.Fatalf("failed commit must not land")
	}

	conn.FailPing = true
	if err := db.PingContext(ctx); err == nil {
		t.Fatalf("expected ping failure")
	}
}
