package msgstore

import (
	"path/filepath"
	"testing"

	"github.com/grvsrs/onebus/pkg/onebot"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func messageWithMedia(id string) *onebot.MessageEvent {
	img := onebot.Image("a.png")
	img.Data["url"] = "https://gw.example/a.png"
	return &onebot.MessageEvent{
		Self:        "123",
		PostType:    "message",
		MessageType: onebot.MessageGroup,
		MessageID:   onebot.ID(id),
		UserID:      "456",
		GroupID:     "789",
		Message:     []onebot.Segment{onebot.Text("look"), img},
		RawMessage:  "look [image]",
		Time:        1700000000,
		Sender:      onebot.Sender{UserID: "456", Nickname: "u"},
	}
}

// TestSaveAndCount verifies archived messages are counted and media rows
// extracted from url-carrying segments.
func TestSaveAndCount(t *testing.T) {
	s := testStore(t)

	if err := s.SaveMessage(messageWithMedia("1")); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}
	if err := s.SaveMessage(messageWithMedia("2")); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	n, err := s.Count()
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 2 {
		t.Errorf("Count = %d, want 2", n)
	}

	urls, err := s.MediaURLs("image", 10)
	if err != nil {
		t.Fatalf("MediaURLs: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("media rows = %d, want 2", len(urls))
	}
	// Newest first.
	if urls[0].MessageID != "2" || urls[1].MessageID != "1" {
		t.Errorf("media order = %s,%s, want 2,1", urls[0].MessageID, urls[1].MessageID)
	}
	if urls[0].URL != "https://gw.example/a.png" {
		t.Errorf("url = %q", urls[0].URL)
	}
}

// TestSaveWithoutMedia verifies plain text messages produce no media rows.
func TestSaveWithoutMedia(t *testing.T) {
	s := testStore(t)

	e := messageWithMedia("1")
	e.Message = []onebot.Segment{onebot.Text("just text")}
	if err := s.SaveMessage(e); err != nil {
		t.Fatalf("SaveMessage: %v", err)
	}

	urls, err := s.MediaURLs("image", 10)
	if err != nil {
		t.Fatalf("MediaURLs: %v", err)
	}
	if len(urls) != 0 {
		t.Errorf("media rows = %d, want 0", len(urls))
	}
}

// TestMediaURLsLimit verifies the limit caps the result set.
func TestMediaURLsLimit(t *testing.T) {
	s := testStore(t)
	for _, id := range []string{"1", "2", "3"} {
		if err := s.SaveMessage(messageWithMedia(id)); err != nil {
			t.Fatal(err)
		}
	}
	urls, err := s.MediaURLs("image", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 2 {
		t.Errorf("media rows = %d, want limit 2", len(urls))
	}
}
