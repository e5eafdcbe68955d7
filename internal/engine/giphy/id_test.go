package giphy

import "testing"

func TestEncodeDecodeID(t *testing.T) {
	id := EncodeID("abc123")
	if id != "giphy_abc123" {
		t.Errorf("EncodeID = %s, want giphy_abc123", id)
	}

	raw, err := DecodeID(id)
	if err != nil {
		t.Fatalf("DecodeID: %v", err)
	}
	if raw != "abc123" {
		t.Errorf("DecodeID = %s, want abc123", raw)
	}
}

func TestDecodeID_RejectsUnmarked(t *testing.T) {
	if _, err := DecodeID("abc123"); err == nil {
		t.Error("expected error for id without prefix")
	}
	// A local UUID must never decode as a Giphy id.
	if _, err := DecodeID("550e8400-e29b-41d4-a716-446655440000"); err == nil {
		t.Error("expected error for local uuid")
	}
}

func TestIsGiphyID(t *testing.T) {
	if !IsGiphyID("giphy_x") {
		t.Error("giphy_x should be recognized")
	}
	if IsGiphyID("gbl_x") {
		t.Error("gbl_x should not be recognized")
	}
}
