package service

import "context"

// RespondentLister is the respondent lookup behind EmailSuffixCohort.
type RespondentLister interface {
	IDsWithEmailSuffix(ctx context.Context, suffix string) ([]int64, error)
	IDsInResearchGroup(ctx context.Context, groupID int64) ([]int64, error)
}

// EmailSuffixCohort treats respondents whose email ends with Suffix as test
// accounts.
type EmailSuffixCohort struct {
	Respondents RespondentLister
	Suffix      string
}

func (c EmailSuffixCohort) TestAccountIDs(ctx context.Context) ([]int64, error) {
	if c.Suffix == "" {
		return nil, nil
	}
	return c.Respondents.IDsWithEmailSuffix(ctx, c.Suffix)
}

func (c EmailSuffixCohort) ResearchGroupMembers(ctx context.Context, groupID int64) ([]int64, error) {
	return c.Respondents.IDsInResearchGroup(ctx, groupID)
}
