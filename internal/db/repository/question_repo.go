package repository

import (
	"context"
	"fmt"

	"github.com/hamzaPixl/deenup/internal/match"
)

// FetchQuestionSet assembles a randomized question set with perDifficulty
// approved questions in each tier, easy first. A short tier fails the whole
// set with ErrNotEnoughQuestions.
func (s *Store) FetchQuestionSet(ctx context.Context, themeID string, perDifficulty int) ([]match.Question, error) {
	difficulties := []string{match.DifficultyEasy, match.DifficultyMedium, match.DifficultyHard}
	set := make([]match.Question, 0, perDifficulty*len(difficulties))
	for _, difficulty := range difficulties {
		tier, err := s.fetchTier(ctx, themeID, difficulty, perDifficulty)
		if err != nil {
			return nil, err
		}
		set = append(set, tier...)
	}
	return set, nil
}

func (s *Store) fetchTier(ctx context.Context, themeID, difficulty string, count int) ([]match.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT question_id, text, options, correct_index, difficulty, explanation
		FROM questions
		WHERE status = 'approved'
		  AND difficulty = $1
		  AND ($2 = '' OR theme_id = $2)
		ORDER BY random()
		LIMIT $3`,
		difficulty, themeID, count,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s questions: %w", difficulty, err)
	}
	defer rows.Close()

	tier := make([]match.Question, 0, count)
	for rows.Next() {
		var q match.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.Options, &q.CorrectIndex, &q.Difficulty, &q.Explanation); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		tier = append(tier, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s questions: %w", difficulty, err)
	}
	if len(tier) < count {
		return nil, match.ErrNotEnoughQuestions
	}
	return tier, nil
}
