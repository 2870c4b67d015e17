package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"

	"go.uber.org/zap"

	"github.com/godilite/milestone-server/internal/repository/models"
)

// ResearchTable is a flat export with one row per completed session.
type ResearchTable struct {
	Columns []string
	Rows    [][]string
}

// WriteCSV writes the table with a header row.
func (t ResearchTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// ExtractResearchData joins completed sessions outside the test cohort with
// their milestone answers and the ancillary answers of respondent and
// child. A non-nil researchGroupID restricts the rows to that group.
func (s *MilestoneService) ExtractResearchData(ctx context.Context, researchGroupID *int64) (ResearchTable, error) {
	ctx, cancel := context.WithTimeout(ctx, statsTimeout)
	defer cancel()

	tests, err := s.testAccounts(ctx)
	if err != nil {
		return ResearchTable{}, err
	}

	filter := models.SessionFilter{CompletedOnly: true}
	if researchGroupID != nil {
		members, err := s.store.Cohort.ResearchGroupMembers(ctx, *researchGroupID)
		if err != nil {
			return ResearchTable{}, storageErr(err, nil)
		}
		filter.UserIDs = members
		if filter.UserIDs == nil {
			filter.UserIDs = []int64{}
		}
	}

	sessions, err := s.store.Sessions.List(ctx, filter)
	if err != nil {
		return ResearchTable{}, storageErr(err, nil)
	}
	milestones, err := s.store.Milestones.ListMilestones(ctx)
	if err != nil {
		return ResearchTable{}, storageErr(err, nil)
	}
	milestoneIDs := make([]int64, 0, len(milestones))
	for _, m := range milestones {
		milestoneIDs = append(milestoneIDs, m.ID)
	}
	slices.Sort(milestoneIDs)

	userQuestions, userAnswers, err := s.questionAnswers(ctx, models.UserQuestions)
	if err != nil {
		return ResearchTable{}, err
	}
	childQuestions, childAnswers, err := s.questionAnswers(ctx, models.ChildQuestions)
	if err != nil {
		return ResearchTable{}, err
	}

	table := ResearchTable{Columns: []string{"answer_session_id", "child_age"}}
	for _, id := range milestoneIDs {
		table.Columns = append(table.Columns, fmt.Sprintf("milestone_id_%d", id))
	}
	for _, q := range userQuestions {
		table.Columns = append(table.Columns, fmt.Sprintf("user_question_%d", q.ID))
	}
	for _, q := range childQuestions {
		table.Columns = append(table.Columns, fmt.Sprintf("child_question_%d", q.ID))
	}

	ages := newChildAges(s.store.Children)
	for _, session := range sessions {
		if tests[session.UserID] {
			continue
		}
		age, err := ages.at(ctx, session)
		if errors.Is(err, ErrChildNotFound) {
			s.logger.Warn("skipping session without child in research export", zap.Int64("session_id", session.ID))
			continue
		}
		if err != nil {
			return ResearchTable{}, err
		}

		row := make([]string, 0, len(table.Columns))
		row = append(row, strconv.FormatInt(session.ID, 10), strconv.Itoa(age))
		for _, id := range milestoneIDs {
			cell := ""
			if a, ok := session.Answers[id]; ok {
				cell = strconv.Itoa(a.Answer)
			}
			row = append(row, cell)
		}
		for _, q := range userQuestions {
			row = append(row, userAnswers[session.UserID][q.ID])
		}
		for _, q := range childQuestions {
			row = append(row, childAnswers[session.ChildID][q.ID])
		}
		table.Rows = append(table.Rows, row)
	}

	s.logger.Info("extracted research data",
		zap.Int("sessions", len(table.Rows)),
		zap.Int("columns", len(table.Columns)))
	return table, nil
}

// questionAnswers loads the questions of kind and their resolved answers
// keyed by owner and question.
func (s *MilestoneService) questionAnswers(ctx context.Context, kind models.QuestionKind) ([]models.Question, map[int64]map[int64]string, error) {
	questions, err := s.store.Research.Questions(ctx, kind)
	if err != nil {
		return nil, nil, storageErr(err, nil)
	}
	answers, err := s.store.Research.Answers(ctx, kind)
	if err != nil {
		return nil, nil, storageErr(err, nil)
	}

	byID := make(map[int64]models.Question, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}
	out := map[int64]map[int64]string{}
	for _, a := range answers {
		if out[a.OwnerID] == nil {
			out[a.OwnerID] = map[int64]string{}
		}
		out[a.OwnerID][a.QuestionID] = a.ResolvedAnswer(byID[a.QuestionID])
	}
	return questions, out, nil
}
