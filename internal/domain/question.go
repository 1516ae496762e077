package domain

// Question is a single prompt with its canonical answer, supplied by the
// question bank collaborator.
type Question struct {
	ID         string `json:"id"`
	Prompt     string `json:"prompt"`
	Answer     string `json:"answer"`
	Difficulty string `json:"difficulty,omitempty"`
}

// QuestionBank is an ordered collection of questions a session draws from.
type QuestionBank struct {
	ID        string     `json:"id"`
	Questions []Question `json:"questions"`
}

// QuestionAt returns the question for a 1-based round number.
func (b QuestionBank) QuestionAt(roundNumber int) (Question, bool) {
	if roundNumber < 1 || roundNumber > len(b.Questions) {
		return Question{}, false
	}
	return b.Questions[roundNumber-1], true
}

// Find returns the question with the given id.
func (b QuestionBank) Find(questionID string) (Question, bool) {
	for _, q := range b.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return Question{}, false
}
