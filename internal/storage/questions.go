package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/conorfennell/qbank/internal/domain"
)

// tagSeparator joins tag names inside group_concat; it cannot appear in a tag.
const tagSeparator = "\x1f"

const questionColumns = `
	q.id, q.account_id, q.question_text, q.answer_md, q.difficulty, q.source, q.is_flagged,
	q.review_count, q.mastery_score, q.interval_ns, q.next_review_at,
	q.created_at, q.updated_at, q.version, q.source_id, q.content_hash,
	(SELECT group_concat(t.tag, char(31)) FROM question_tags t WHERE t.question_id = q.id)`

// QuestionFilter narrows ListQuestions. AccountID is required.
type QuestionFilter struct {
	AccountID string
	// Search matches question text, answer or any tag (substring, case-insensitive).
	Search  string
	Tag     string
	Flagged *bool
	// DueAt keeps only questions with next_review_at <= *DueAt and orders the
	// result by due time. Without it results are ordered by most recently updated.
	DueAt    *time.Time
	SourceID *int64
}

// InsertQuestion stores a new question together with its tags.
func (db *DB) InsertQuestion(ctx context.Context, q *domain.Question) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO questions (
				id, account_id, question_text, answer_md, difficulty, source, is_flagged,
				review_count, mastery_score, interval_ns, next_review_at,
				created_at, updated_at, version, source_id, content_hash
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			q.ID, q.AccountID, q.QuestionText, q.AnswerMD, q.Difficulty, q.Source, q.IsFlagged,
			q.ReviewCount, q.MasteryScore, int64(q.Interval), toUnix(q.NextReviewAt),
			toUnix(q.CreatedAt), toUnix(q.UpdatedAt), q.Version,
			sql.NullInt64{Int64: q.SourceID, Valid: q.SourceID != 0},
			sql.NullString{String: q.ContentHash, Valid: q.ContentHash != ""},
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("question %s: %w", q.ID, domain.ErrConflict)
			}
			return unavailable(fmt.Sprintf("failed to insert question %s", q.ID), err)
		}
		return replaceTags(ctx, tx, q.ID, q.Tags)
	})
}

// GetQuestion retrieves a question owned by accountID.
func (db *DB) GetQuestion(ctx context.Context, accountID, id string) (*domain.Question, error) {
	return getQuestion(ctx, db.conn, accountID, id)
}

func getQuestion(ctx context.Context, q querier, accountID, id string) (*domain.Question, error) {
	row := q.QueryRowContext(ctx, `SELECT `+questionColumns+`
		FROM questions q WHERE q.id = ? AND q.account_id = ?
	`, id, accountID)

	question, err := scanQuestion(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("question %s: %w", id, domain.ErrNotFound)
		}
		return nil, unavailable(fmt.Sprintf("failed to find question %s", id), err)
	}
	return question, nil
}

// ListQuestions returns the questions matching f.
func (db *DB) ListQuestions(ctx context.Context, f QuestionFilter) ([]domain.Question, error) {
	where, args := []string{"q.account_id = ?"}, []any{f.AccountID}

	if s := strings.ToLower(strings.TrimSpace(f.Search)); s != "" {
		pattern := "%" + escapeLike(s) + "%"
		where = append(where, `(`+foldFunc+`(q.question_text) LIKE ? ESCAPE '\'
			OR `+foldFunc+`(q.answer_md) LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM question_tags st WHERE st.question_id = q.id AND `+foldFunc+`(st.tag) LIKE ? ESCAPE '\'))`)
		args = append(args, pattern, pattern, pattern)
	}
	if tag := strings.ToLower(strings.TrimSpace(f.Tag)); tag != "" {
		where = append(where, "EXISTS (SELECT 1 FROM question_tags ft WHERE ft.question_id = q.id AND ft.tag = ?)")
		args = append(args, tag)
	}
	if f.Flagged != nil {
		where = append(where, "q.is_flagged = ?")
		args = append(args, *f.Flagged)
	}
	if f.SourceID != nil {
		where = append(where, "q.source_id = ?")
		args = append(args, *f.SourceID)
	}

	order := "q.updated_at DESC, q.id ASC"
	if f.DueAt != nil {
		where = append(where, "q.next_review_at <= ?")
		args = append(args, toUnix(*f.DueAt))
		order = "q.next_review_at ASC, q.id ASC"
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT `+questionColumns+`
		FROM questions q
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY `+order, args...)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("failed to list questions for account %s", f.AccountID), err)
	}
	defer rows.Close()

	questions := []domain.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, unavailable("failed to scan question row", err)
		}
		questions = append(questions, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("failed to iterate question rows", err)
	}
	return questions, nil
}

// UpdateQuestion stores the editable content of q (text, answer, difficulty,
// source, flag, tags). The schedule is left untouched.
func (db *DB) UpdateQuestion(ctx context.Context, q *domain.Question) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE questions
			SET question_text = ?, answer_md = ?, difficulty = ?, source = ?, is_flagged = ?,
			    updated_at = ?, version = version + 1
			WHERE id = ? AND account_id = ?
		`,
			q.QuestionText, q.AnswerMD, q.Difficulty, q.Source, q.IsFlagged,
			toUnix(q.UpdatedAt), q.ID, q.AccountID,
		)
		if err != nil {
			return unavailable(fmt.Sprintf("failed to update question %s", q.ID), err)
		}
		if err := expectOneRow(res, q.ID, domain.ErrNotFound); err != nil {
			return err
		}
		return replaceTags(ctx, tx, q.ID, q.Tags)
	})
}

// UpdateSchedule performs the read-modify-write of a question's schedule in
// a single transaction. apply receives the freshly read question and returns
// the new schedule. The write is guarded by the row version, so a concurrent
// change between read and write yields domain.ErrConflict. When apply or the
// write fails nothing is stored.
func (db *DB) UpdateSchedule(ctx context.Context, accountID, id string, apply func(domain.Question) (domain.Schedule, error)) (*domain.Question, error) {
	var updated *domain.Question
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		q, err := getQuestion(ctx, tx, accountID, id)
		if err != nil {
			return err
		}

		next, err := apply(*q)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE questions
			SET review_count = ?, mastery_score = ?, interval_ns = ?, next_review_at = ?,
			    updated_at = ?, version = version + 1
			WHERE id = ? AND account_id = ? AND version = ?
		`,
			next.ReviewCount, next.MasteryScore, int64(next.Interval), toUnix(next.NextReviewAt),
			toUnix(next.UpdatedAt), id, accountID, q.Version,
		)
		if err != nil {
			return unavailable(fmt.Sprintf("failed to update schedule for question %s", id), err)
		}
		if err := expectOneRow(res, id, domain.ErrConflict); err != nil {
			return err
		}

		q.Schedule = next
		q.Version++
		updated = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteQuestion removes a question owned by accountID.
func (db *DB) DeleteQuestion(ctx context.Context, accountID, id string) error {
	res, err := db.conn.ExecContext(ctx, `
		DELETE FROM questions
		WHERE id = ? AND account_id = ?
	`, id, accountID)
	if err != nil {
		return unavailable(fmt.Sprintf("failed to delete question %s", id), err)
	}
	return expectOneRow(res, id, domain.ErrNotFound)
}

// QuestionHashesBySource maps content hash to question id for every question
// imported from sourceID.
func (db *DB) QuestionHashesBySource(ctx context.Context, sourceID int64) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, content_hash FROM questions
		WHERE source_id = ? AND content_hash IS NOT NULL
	`, sourceID)
	if err != nil {
		return nil, unavailable(fmt.Sprintf("failed to get questions for source ID %d", sourceID), err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return nil, unavailable(fmt.Sprintf("failed to scan question row for source ID %d", sourceID), err)
		}
		hashes[hash] = id
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(fmt.Sprintf("failed to iterate questions for source ID %d", sourceID), err)
	}
	return hashes, nil
}

func replaceTags(ctx context.Context, tx *sql.Tx, questionID string, tags []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM question_tags WHERE question_id = ?`, questionID); err != nil {
		return unavailable(fmt.Sprintf("failed to clear tags for question %s", questionID), err)
	}
	for _, tag := range domain.NormalizeTags(tags) {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO question_tags (question_id, tag) VALUES (?, ?)
		`, questionID, tag); err != nil {
			return unavailable(fmt.Sprintf("failed to insert tag %q for question %s", tag, questionID), err)
		}
	}
	return nil
}

func expectOneRow(res sql.Result, id string, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable(fmt.Sprintf("failed to read affected rows for %s", id), err)
	}
	if n == 0 {
		return fmt.Errorf("question %s: %w", id, sentinel)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*domain.Question, error) {
	var (
		q                        domain.Question
		intervalNs               int64
		nextReview, created, upd int64
		sourceID                 sql.NullInt64
		contentHash, tags        sql.NullString
	)
	err := row.Scan(
		&q.ID, &q.AccountID, &q.QuestionText, &q.AnswerMD, &q.Difficulty, &q.Source, &q.IsFlagged,
		&q.ReviewCount, &q.MasteryScore, &intervalNs, &nextReview,
		&created, &upd, &q.Version, &sourceID, &contentHash, &tags,
	)
	if err != nil {
		return nil, err
	}
	q.Interval = time.Duration(intervalNs)
	q.NextReviewAt = fromUnix(nextReview)
	q.CreatedAt = fromUnix(created)
	q.UpdatedAt = fromUnix(upd)
	q.SourceID = sourceID.Int64
	q.ContentHash = contentHash.String
	q.Tags = []string{}
	if tags.Valid && tags.String != "" {
		q.Tags = strings.Split(tags.String, tagSeparator)
		sort.Strings(q.Tags)
	}
	return &q, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
