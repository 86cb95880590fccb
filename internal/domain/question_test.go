package domain

import "testing"

func TestQuestion_CheckAnswer_MultipleChoice(t *testing.T) {
	q := &Question{
		Type:          QuestionMultipleChoice,
		CorrectAnswer: "b",
		Options: []AnswerOption{
			{ID: "a", Text: "Mars"},
			{ID: "b", Text: "Jupiter"},
		},
	}

	if !q.CheckAnswer("b") {
		t.Error("matching option id should be correct")
	}
	if q.CheckAnswer("a") {
		t.Error("wrong option id should be incorrect")
	}
	// Option text never matches, only the id does
	if q.CheckAnswer("Jupiter") {
		t.Error("option text should not match")
	}
	if q.CheckAnswer("B") {
		t.Error("option ids are case sensitive")
	}
}

func TestQuestion_CheckAnswer_FreeText(t *testing.T) {
	q := &Question{
		Type:          QuestionShortAnswer,
		CorrectAnswer: "Photosynthesis",
	}

	tests := []struct {
		answer string
		want   bool
	}{
		{"Photosynthesis", true},
		{"photosynthesis", true},
		{"  PHOTOSYNTHESIS  ", true},
		{"respiration", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := q.CheckAnswer(tt.answer); got != tt.want {
			t.Errorf("CheckAnswer(%q) = %v, want %v", tt.answer, got, tt.want)
		}
	}
}
