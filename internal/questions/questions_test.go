// internal/questions/questions_test.go
package questions

import "testing"

func TestSplitTwoQuestions(t *testing.T) {
	text := "Câu 1: X?\nA. a\nB. b\nC. c\nD. d\n\nCâu 2: Y?"
	qs := Split(text)
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}

	if qs[0].Index != 1 || qs[0].Stem != "X?" {
		t.Fatalf("unexpected first question: %+v", qs[0])
	}
	if len(qs[0].Choices) != 4 || qs[0].Choices["A"] != "a" || qs[0].Choices["D"] != "d" {
		t.Fatalf("unexpected choices: %v", qs[0].Choices)
	}

	if qs[1].Index != 2 || qs[1].Stem != "Y?" || qs[1].Choices != nil {
		t.Fatalf("unexpected second question: %+v", qs[1])
	}
}

func TestSplitIgnoresPreamble(t *testing.T) {
	qs := Split("ĐỀ THI THỬ\nThời gian: 50 phút\n\nCâu 3: Este là gì?")
	if len(qs) != 1 || qs[0].Index != 3 || qs[0].Stem != "Este là gì?" {
		t.Fatalf("unexpected result: %+v", qs)
	}
}

func TestSplitMultilineStem(t *testing.T) {
	text := "Câu 1: Cho sơ đồ sau:\nX → Y → Z\nA. anđehit\nB. ancol"
	qs := Split(text)
	if len(qs) != 1 {
		t.Fatalf("expected 1 question, got %d", len(qs))
	}
	if qs[0].Stem != "Cho sơ đồ sau:\nX → Y → Z" {
		t.Fatalf("unexpected stem: %q", qs[0].Stem)
	}
	if len(qs[0].Choices) != 2 || qs[0].Choices["B"] != "ancol" {
		t.Fatalf("unexpected choices: %v", qs[0].Choices)
	}
}

func TestSplitNoMarkers(t *testing.T) {
	if qs := Split("este là gì?"); qs != nil {
		t.Fatalf("expected nil for marker-free text, got %+v", qs)
	}
}

func TestSplitCaseInsensitiveMarker(t *testing.T) {
	qs := Split("câu 5: CÂU hỏi?")
	if len(qs) != 1 || qs[0].Index != 5 {
		t.Fatalf("expected lowercase marker to match, got %+v", qs)
	}
}
