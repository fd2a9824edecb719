package ingest

import (
	"strings"
	"testing"
)

func TestChunkLogSmallContentSingleChunk(t *testing.T) {
	content := "line1\nline2\nline3"
	chunks := ChunkLog("test.log", content)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].LineStart != 1 || chunks[0].LineEnd != 3 {
		t.Errorf("unexpected line range: %+v", chunks[0])
	}
}

func TestChunkLogEmpty(t *testing.T) {
	if chunks := ChunkLog("test.log", ""); chunks != nil {
		t.Errorf("expected nil chunks for empty content, got %v", chunks)
	}
}

func TestChunkLogLargeContentOverlaps(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50000; i++ {
		b.WriteString("this is a repeated log line that takes up some space\n")
	}
	chunks := ChunkLog("big.log", b.String())
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for large content, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.TotalChunks != len(chunks) {
			t.Errorf("expected TotalChunks=%d, got %d", len(chunks), c.TotalChunks)
		}
	}
	// consecutive chunks should overlap: next chunk's start <= previous chunk's end
	for i := 1; i < len(chunks); i++ {
		if chunks[i].LineStart > chunks[i-1].LineEnd {
			t.Errorf("expected overlap between chunk %d and %d", i-1, i)
		}
	}
}
