package dispatch

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func makeRecords(n int) []Record {
	recs := make([]Record, n)
	for i := range recs {
		recs[i] = Record{
			DestNo:   fmt.Sprintf("010%08d", i),
			Callback: "0212345678",
			Body:     "hello",
			KindCode: "S",
			Tag:      "camp-1:1",
		}
	}
	return recs
}

func TestSendTimesSplit(t *testing.T) {
	at := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	// 2500 recipients split by 1000 -> chunks at T, T+1m, T+2m.
	times := SendTimes(2500, 1000, at, time.Minute)
	if len(times) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(times))
	}
	for i, want := range []time.Time{at, at.Add(time.Minute), at.Add(2 * time.Minute)} {
		if !times[i].Equal(want) {
			t.Errorf("chunk %d at %v, want %v", i, times[i], want)
		}
	}

	// No split -> a single chunk at the scheduled instant.
	times = SendTimes(2500, 0, at, time.Minute)
	if len(times) != 1 || !times[0].Equal(at) {
		t.Fatalf("unexpected times without split: %v", times)
	}
}

func TestChunkRecords(t *testing.T) {
	chunks := chunkRecords(makeRecords(7), 3)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[0]) != 3 || len(chunks[2]) != 1 {
		t.Fatalf("unexpected chunk sizes: %d %d %d", len(chunks[0]), len(chunks[1]), len(chunks[2]))
	}
	if chunkRecords(nil, 3) != nil {
		t.Fatal("empty input should produce no chunks")
	}
}

func TestWriteAllSplitOffsets(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	at := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)

	// One worker keeps execution order == chunk order, so each statement's
	// send time can be pinned.
	w := NewWriter(db, 10, 1, time.Minute)

	for i := 0; i < 3; i++ {
		mock.ExpectExec(`INSERT INTO sms_queue`).
			WillReturnResult(sqlmock.NewResult(0, 2))
	}

	res := w.WriteAll(context.Background(), makeRecords(5), at, 2)
	if res.FirstErr != nil {
		t.Fatalf("unexpected error: %v", res.FirstErr)
	}
	if res.Written != 5 || res.Chunks != 3 {
		t.Fatalf("written=%d chunks=%d, want 5/3", res.Written, res.Chunks)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWriteAllContinuesPastChunkFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	w := NewWriter(db, 10, 1, time.Minute)

	mock.ExpectExec(`INSERT INTO sms_queue`).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`INSERT INTO sms_queue`).WillReturnError(fmt.Errorf("connection reset"))
	mock.ExpectExec(`INSERT INTO sms_queue`).WillReturnResult(sqlmock.NewResult(0, 1))

	res := w.WriteAll(context.Background(), makeRecords(5), time.Now(), 2)

	if res.Written != 3 {
		t.Fatalf("chunks 0 and 2 should land, written=%d", res.Written)
	}
	if res.FirstErr == nil {
		t.Fatal("first error must be reported")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestWriteAllSubBatchesLargeChunk(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	// Chunk of 5 with insertBatch 2 -> 3 INSERT statements, one chunk.
	w := NewWriter(db, 2, 1, time.Minute)
	for i := 0; i < 3; i++ {
		mock.ExpectExec(`INSERT INTO sms_queue`).WillReturnResult(sqlmock.NewResult(0, 2))
	}

	res := w.WriteAll(context.Background(), makeRecords(5), time.Now(), 0)
	if res.FirstErr != nil || res.Written != 5 || res.Chunks != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
