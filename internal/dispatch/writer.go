package dispatch

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Record is one message instance to append to the dispatch queue.
type Record struct {
	DestNo   string // recipient phone, digits only
	Callback string // effective sender identity
	Subject  string // LMS/MMS subject, empty for SMS
	Body     string // fully personalized content
	KindCode string // S, L, or M
	Tag      string // correlation tag back to campaign:run
}

// WriteResult reports what a batched write accomplished. Chunks are
// independent: one chunk failing does not stop later chunks, so Written
// can be nonzero alongside a non-nil FirstErr.
type WriteResult struct {
	Written  int
	Chunks   int
	FirstErr error
}

// Writer appends records to the dispatch queue in fixed-size chunks.
//
// Chunking serves two purposes: it bounds single-statement size, and it
// carries split-send semantics — when a split count is set, chunk i is
// requested at startAt + i*interval. The chunk index to offset mapping is
// deterministic regardless of which worker writes which chunk first.
type Writer struct {
	db          *sql.DB
	insertBatch int           // max rows per INSERT statement
	workers     int           // concurrent chunk writers
	interval    time.Duration // split-send spacing between chunks
}

// NewWriter creates a writer over the dispatch store handle.
func NewWriter(db *sql.DB, insertBatch, workers int, interval time.Duration) *Writer {
	if insertBatch <= 0 {
		insertBatch = 500
	}
	if workers <= 0 {
		workers = 1
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Writer{db: db, insertBatch: insertBatch, workers: workers, interval: interval}
}

// chunkRecords splits recs into chunks of size n, preserving order.
func chunkRecords(recs []Record, n int) [][]Record {
	if len(recs) == 0 {
		return nil
	}
	if n <= 0 || n >= len(recs) {
		return [][]Record{recs}
	}
	var out [][]Record
	for start := 0; start < len(recs); start += n {
		end := start + n
		if end > len(recs) {
			end = len(recs)
		}
		out = append(out, recs[start:end])
	}
	return out
}

// SendTimes computes the requested send time for each split-send chunk:
// chunk i goes out at startAt + i*interval. With splitCount <= 0 there is
// a single chunk at startAt.
func SendTimes(total, splitCount int, startAt time.Time, interval time.Duration) []time.Time {
	chunks := 1
	if splitCount > 0 && total > 0 {
		chunks = (total + splitCount - 1) / splitCount
	}
	out := make([]time.Time, chunks)
	for i := range out {
		out[i] = startAt.Add(time.Duration(i) * interval)
	}
	return out
}

// WriteAll appends every record, split into chunks of splitCount (or one
// chunk if splitCount <= 0), each chunk stamped with its deterministic
// send time. Chunks are written by a bounded worker pool; a chunk failure
// is logged and does not stop the remaining chunks. The first error (by
// chunk index, not completion order) is reported.
func (w *Writer) WriteAll(ctx context.Context, recs []Record, startAt time.Time, splitCount int) WriteResult {
	if len(recs) == 0 {
		return WriteResult{}
	}

	size := splitCount
	if size <= 0 {
		size = len(recs)
	}
	chunks := chunkRecords(recs, size)
	times := SendTimes(len(recs), splitCount, startAt, w.interval)

	type chunkErr struct {
		idx int
		err error
	}

	var (
		mu      sync.Mutex
		written int
		firstE  *chunkErr
	)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				n, err := w.writeChunk(ctx, chunks[idx], times[idx])
				mu.Lock()
				written += n
				if err != nil && (firstE == nil || idx < firstE.idx) {
					firstE = &chunkErr{idx: idx, err: err}
				}
				mu.Unlock()
				if err != nil {
					log.Printf("[dispatch.Writer] chunk %d/%d failed: %v", idx+1, len(chunks), err)
				}
			}
		}()
	}
	for idx := range chunks {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	res := WriteResult{Written: written, Chunks: len(chunks)}
	if firstE != nil {
		res.FirstErr = fmt.Errorf("write chunk %d: %w", firstE.idx, firstE.err)
	}
	return res
}

// writeChunk inserts one chunk, in sub-batches bounded by insertBatch so a
// large split count cannot blow up a single statement.
func (w *Writer) writeChunk(ctx context.Context, recs []Record, sendAt time.Time) (int, error) {
	written := 0
	for _, batch := range chunkRecords(recs, w.insertBatch) {
		if err := w.insertBatchRows(ctx, batch, sendAt); err != nil {
			return written, err
		}
		written += len(batch)
	}
	return written, nil
}

func (w *Writer) insertBatchRows(ctx context.Context, recs []Record, sendAt time.Time) error {
	values := make([]string, 0, len(recs))
	args := make([]interface{}, 0, len(recs)*7)
	idx := 1
	for _, r := range recs {
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, %d, $%d)",
			idx, idx+1, idx+2, idx+3, idx+4, idx+5, StatusQueued, idx+6))
		args = append(args, r.DestNo, r.Callback, r.Subject, r.Body, r.KindCode, sendAt, r.Tag)
		idx += 7
	}

	q := `
		INSERT INTO sms_queue
			(dest_no, call_back, subject, msg_contents, msg_type, sendreq_time, status_code, app_etc1)
		VALUES ` + strings.Join(values, ", ")

	if _, err := w.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert %d queue records: %w", len(recs), err)
	}
	return nil
}
