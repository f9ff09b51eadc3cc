package scenes

import (
	"strings"
	"testing"
)

func TestExtractJSONArray(t *testing.T) {
	content := `[
		{"narration": "Stay hydrated all day.", "caption": "Hydrate!", "duration": 4},
		{"narration": "Carry a bottle everywhere you go.", "visual_prompt": "water bottle on desk"}
	]`

	got, err := Extract(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(got))
	}

	if got[0].Caption != "Hydrate!" {
		t.Errorf("expected explicit caption kept, got %q", got[0].Caption)
	}
	if got[0].Duration != 4 {
		t.Errorf("expected explicit duration kept, got %v", got[0].Duration)
	}

	if got[1].Index != 2 {
		t.Errorf("expected reindexed scenes, got index %d", got[1].Index)
	}
	if got[1].Caption == "" {
		t.Error("expected caption derived from narration")
	}
	if got[1].Duration < 3 {
		t.Errorf("expected estimated duration >= 3, got %v", got[1].Duration)
	}
}

func TestExtractJSONEnvelope(t *testing.T) {
	content := `{"scenes": [{"narration": "One tip per scene."}]}`

	got, err := Extract(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 scene, got %d", len(got))
	}
}

func TestExtractPlainText(t *testing.T) {
	content := "Drink water first thing in the morning.\n\nKeep a glass at your desk.\n"

	got, err := Extract(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 scenes, got %d", len(got))
	}
	for i, s := range got {
		if s.Index != i+1 {
			t.Errorf("scene %d: expected index %d, got %d", i, i+1, s.Index)
		}
		if s.Duration < 3 {
			t.Errorf("scene %d: duration below floor: %v", i, s.Duration)
		}
	}
}

func TestExtractLongLineCaptionShortened(t *testing.T) {
	line := strings.Repeat("water ", 30)

	got, err := Extract(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got[0].Caption) > maxCaptionLen+3 {
		t.Errorf("caption not shortened: %d chars", len(got[0].Caption))
	}
	if !strings.HasSuffix(got[0].Caption, "...") {
		t.Errorf("expected ellipsis suffix, got %q", got[0].Caption)
	}
}

func TestExtractEmpty(t *testing.T) {
	for _, content := range []string{"", "   \n  \n", "[]", `{"scenes": []}`} {
		if _, err := Extract(content); err == nil {
			t.Errorf("expected error for content %q", content)
		}
	}
}
