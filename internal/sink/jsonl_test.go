package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"swapCore/internal/model"
)

func TestJsonlSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	s := NewJsonlSink(path)

	first := model.EventRecord{Seq: 1, EventName: model.EventSwap, Timestamp: 1700000000, Token0: "0xaa", Token1: "0xbb", Decoded: json.RawMessage(`{"amount_in":"5"}`)}
	second := model.EventRecord{Seq: 2, EventName: model.EventLiquidityAdded, Timestamp: 1700000001, Token0: "0xaa", Token1: "0xbb", Decoded: json.RawMessage(`{}`)}

	if err := s.PutEventBatch(context.Background(), []model.EventRecord{first}); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	if err := s.PutEventBatch(context.Background(), []model.EventRecord{second}); err != nil {
		t.Fatalf("second batch: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer file.Close()

	var records []model.EventRecord
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec model.EventRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode line: %v", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Seq != 1 || records[1].Seq != 2 {
		t.Fatalf("sequence mismatch: %d %d", records[0].Seq, records[1].Seq)
	}
	if records[1].EventName != model.EventLiquidityAdded {
		t.Fatalf("event name mismatch: %s", records[1].EventName)
	}
}

func TestJsonlSinkEmptyBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	s := NewJsonlSink(path)

	if err := s.PutEventBatch(context.Background(), nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("empty batch must not create the file")
	}
}
