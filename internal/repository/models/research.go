package models

// QuestionKind selects between questions asked about the respondent and
// questions asked about the child.
type QuestionKind string

const (
	UserQuestions  QuestionKind = "user"
	ChildQuestions QuestionKind = "child"
)

type Question struct {
	ID               int64
	Order            int
	AdditionalOption string
}

// QuestionAnswer is an answer to a user or child question. OwnerID is the
// respondent id for user questions and the child id for child questions.
type QuestionAnswer struct {
	OwnerID          int64
	QuestionID       int64
	Answer           string
	AdditionalAnswer string
}

// ResolvedAnswer substitutes the free-text answer when the additional
// option of the question was chosen.
func (a QuestionAnswer) ResolvedAnswer(q Question) string {
	if q.AdditionalOption != "" && a.Answer == q.AdditionalOption && a.AdditionalAnswer != "" {
		return a.AdditionalAnswer
	}
	return a.Answer
}
