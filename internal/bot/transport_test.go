package bot

import (
	"testing"
	"time"

	"github.com/iliyamo/teledl/internal/config"
)

func testPlatformTable() config.Platforms {
	return config.Platforms{
		"terabox": {ID: "terabox", Label: "Terabox", FreeLimit: 5},
		"youtube": {ID: "youtube", Label: "YouTube", FreeLimit: 10},
	}
}

func TestCategoryFor(t *testing.T) {
	cases := map[string]mediaCategory{
		"clip.mp4":     catVideo,
		"movie.MKV":    catVideo,
		"photo.jpg":    catPhoto,
		"pic.PNG":      catPhoto,
		"track.mp3":    catAudio,
		"voice.ogg":    catAudio,
		"archive.zip":  catDocument,
		"noextension":  catDocument,
		"weird.mp4.gz": catDocument,
	}
	for path, want := range cases {
		if got := categoryFor(path); got != want {
			t.Errorf("categoryFor(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestIsDigits(t *testing.T) {
	valid := []string{"123456", "000000001"}
	invalid := []string{"", "12 3456", "12a456", "１２３４５６", "-123456"}
	for _, s := range valid {
		if !isDigits(s) {
			t.Errorf("isDigits(%q) = false", s)
		}
	}
	for _, s := range invalid {
		if isDigits(s) {
			t.Errorf("isDigits(%q) = true", s)
		}
	}
}

func TestMainMenuKeyboardCoversPlatformTable(t *testing.T) {
	platforms := testPlatformTable()
	kb := mainMenuKeyboard(platforms)
	// Help row + one row per platform + premium row.
	if got, want := len(kb.InlineKeyboard), len(platforms)+2; got != want {
		t.Fatalf("rows = %d, want %d", got, want)
	}

	seen := map[string]bool{}
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if btn.CallbackData != nil {
				seen[*btn.CallbackData] = true
			}
		}
	}
	for _, id := range platforms.IDs() {
		if !seen[cbDownload+id] {
			t.Errorf("no button for platform %s", id)
		}
	}
	if !seen[cbHelp] || !seen[cbPremium] {
		t.Error("help or premium button missing")
	}
}

func TestSortedBundles(t *testing.T) {
	got := sortedBundles(map[int]int{200: 40, 50: 100, 100: 20})
	want := []int{50, 100, 200}
	if len(got) != len(want) {
		t.Fatalf("bundles = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bundles = %v, want %v", got, want)
		}
	}
}

func TestFormatDelay(t *testing.T) {
	if got := formatDelay(3 * time.Minute); got != "3 minutes" {
		t.Fatalf("formatDelay = %q", got)
	}
	if got := formatDelay(90 * time.Second); got != "1m30s" {
		t.Fatalf("formatDelay = %q", got)
	}
}
