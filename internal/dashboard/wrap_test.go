package dashboard

import "testing"

func TestWrapTextBreaksAtSpaces(t *testing.T) {
	got := wrapText("Aim for more deep and REM sleep.", 12)
	want := "Aim for more\ndeep and REM\nsleep."
	if got != want {
		t.Fatalf("unexpected wrap:\n%q\nwant\n%q", got, want)
	}
}

func TestWrapTextSplitsLongWords(t *testing.T) {
	if got := wrapText("abcdefgh", 3); got != "abc\ndef\ngh" {
		t.Fatalf("unexpected wrap %q", got)
	}
}

func TestWrapTextCountsWideRunes(t *testing.T) {
	if got := wrapText("😀 ok", 3); got != "😀\nok" {
		t.Fatalf("unexpected wrap %q", got)
	}
}

func TestWrapTextNoWidth(t *testing.T) {
	if got := wrapText("leave me", 0); got != "leave me" {
		t.Fatalf("unexpected wrap %q", got)
	}
}
