package quiz

import (
	"context"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// TestStatistics aggregates finished attempts of a test. Owner only.
func (s *Service) TestStatistics(ctx context.Context, testID, callerID string) (TestStats, error) {
	if _, err := s.ownedTest(ctx, testID, callerID); err != nil {
		return TestStats{}, err
	}
	attempts, err := s.store.ListAttempts(ctx, AttemptListOpts{TestID: testID, FinishedOnly: true})
	if err != nil {
		return TestStats{}, err
	}
	st := TestStats{TestID: testID}
	scores := finishedScores(attempts)
	if len(scores) == 0 {
		return st, nil
	}
	st.TotalAttempts = len(scores)
	st.HighestScore, st.LowestScore = scores[0], scores[0]
	sum := 0.0
	for _, v := range scores {
		sum += v
		st.HighestScore = max(st.HighestScore, v)
		st.LowestScore = min(st.LowestScore, v)
	}
	st.AverageScore = grading.Round2(sum / float64(len(scores)))
	return st, nil
}

// TestAttempts lists every attempt of a test, newest first. Owner only.
func (s *Service) TestAttempts(ctx context.Context, testID, callerID string, page Page) ([]Attempt, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.ownedTest(ctx, testID, callerID); err != nil {
		return nil, err
	}
	return s.store.ListAttempts(ctx, AttemptListOpts{TestID: testID, Page: page})
}

// MyAttempts lists the caller's own attempts, newest first, optionally
// narrowed to one test or to finished attempts.
func (s *Service) MyAttempts(ctx context.Context, userID, testID string, finishedOnly bool, page Page) ([]Attempt, error) {
	if err := page.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListAttempts(ctx, AttemptListOpts{
		TestID:       testID,
		UserID:       userID,
		FinishedOnly: finishedOnly,
		Page:         page,
	})
}

// UserStatistics summarises what userID has taken and authored.
func (s *Service) UserStatistics(ctx context.Context, userID string) (UserStats, error) {
	attempts, err := s.store.ListAttempts(ctx, AttemptListOpts{UserID: userID, FinishedOnly: true})
	if err != nil {
		return UserStats{}, err
	}
	created, err := s.store.CountTestsByAuthor(ctx, userID)
	if err != nil {
		return UserStats{}, err
	}
	st := UserStats{TestsCreated: created}
	scores := finishedScores(attempts)
	st.TotalAttempts = len(scores)
	if len(scores) > 0 {
		sum := 0.0
		for _, v := range scores {
			sum += v
		}
		st.AverageScore = grading.Round2(sum / float64(len(scores)))
	}
	return st, nil
}

func finishedScores(attempts []Attempt) []float64 {
	out := make([]float64, 0, len(attempts))
	for _, a := range attempts {
		if a.Finished() && a.Score != nil {
			out = append(out, *a.Score)
		}
	}
	return out
}
