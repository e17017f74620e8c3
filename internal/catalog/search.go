package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"popcorn/internal/fields"
)

// SearchFilter narrows a contribution listing. Zero values match everything.
type SearchFilter struct {
	RecordID int64
	Field    fields.Type
	Status   ContributionStatus
	From     time.Time
	To       time.Time
}

// Page is a 1-based page request.
type Page struct {
	Number  int
	PerPage int
}

// SearchResult is one page of matching contributions plus the total match
// count across all pages.
type SearchResult struct {
	Contributions []*Contribution
	Total         int
	Page          int
	PerPage       int
}

// SearchContributions returns contributions matching the filter, newest
// first. This is a pure read projection; no engine invariant depends on it.
func (s *Store) SearchContributions(ctx context.Context, filter SearchFilter, page Page) (*SearchResult, error) {
	ctx = ensureContext(ctx)
	if page.Number < 1 {
		page.Number = 1
	}
	if page.PerPage < 1 {
		page.PerPage = 20
	}

	var (
		clauses []string
		args    []any
	)
	if filter.RecordID > 0 {
		clauses = append(clauses, "record_id = ?")
		args = append(args, filter.RecordID)
	}
	if filter.Field != "" {
		clauses = append(clauses, "field = ?")
		args = append(args, string(filter.Field))
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, timestamp(filter.From))
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, timestamp(filter.To))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM contributions`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count contributions: %w", err)
	}

	query := `SELECT ` + contributionColumns + ` FROM contributions` + where +
		` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	queryArgs := append(append([]any{}, args...), page.PerPage, (page.Number-1)*page.PerPage)

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("search contributions: %w", err)
	}
	defer rows.Close()

	result := &SearchResult{Total: total, Page: page.Number, PerPage: page.PerPage}
	for rows.Next() {
		contribution, err := scanContribution(rows)
		if err != nil {
			return nil, err
		}
		result.Contributions = append(result.Contributions, contribution)
	}
	return result, rows.Err()
}
