package repository

import (
	"fmt"
	"strings"
)

// SortKey names one sortable field. The whitelist below is the only bridge
// between client-supplied sort parameters and SQL: a key is mapped to exactly
// one column expression at compile time, never interpolated from input.
type SortKey string

const (
	SortUpdatedAt    SortKey = "updatedAt"
	SortCreatedAt    SortKey = "createdAt"
	SortCommentCount SortKey = "commentCount"
	SortViews        SortKey = "views"
	SortLikeCount    SortKey = "likeCount"
)

var sortColumns = map[SortKey]string{
	SortUpdatedAt:    "updated_at",
	SortCreatedAt:    "created_at",
	SortCommentCount: "comment_count",
	SortViews:        "views",
	SortLikeCount:    "like_count",
}

// SortKeyFromField resolves a client field name case-insensitively. Unknown
// keys fall back to most-recent-first instead of erroring, keeping the
// endpoint permissive for older clients.
func SortKeyFromField(field string) SortKey {
	for key := range sortColumns {
		if strings.EqualFold(string(key), field) {
			return key
		}
	}
	return SortUpdatedAt
}

type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

func SortDirectionFromField(field string) SortDirection {
	if strings.EqualFold(field, "asc") {
		return SortAsc
	}
	return SortDesc
}

// SearchRequest is the validated search input shared by the community and
// portfolio query builders.
type SearchRequest struct {
	PageRequest
	Keyword   string
	Category  string
	Sort      SortKey
	Direction SortDirection
}

// CacheKey is a canonical representation of the request, used by the search
// page cache. Identical requests must produce identical keys.
func (r SearchRequest) CacheKey() string {
	p := normalizePageRequest(r.PageRequest)
	return fmt.Sprintf("p=%d:s=%d:k=%s:c=%s:o=%s:%s", p.Page, p.PageSize, r.Keyword, r.Category, r.Sort, r.Direction)
}

// keywordClauses builds the dialect-specific text-match predicate and
// relevance expression. Postgres uses the stored search_vector with
// websearch_to_tsquery and ts_rank; every other dialect (sqlite in tests)
// degrades to LIKE matching with a title-over-body score so ordering
// semantics stay observable.
func keywordClauses(dialect, table string, textColumns []string, keyword string) (pred string, predArgs []any, rank string, rankArgs []any) {
	if dialect == "postgres" {
		pred = fmt.Sprintf("%s.search_vector @@ websearch_to_tsquery('simple', ?)", table)
		rank = fmt.Sprintf("ts_rank(%s.search_vector, websearch_to_tsquery('simple', ?))", table)
		return pred, []any{keyword}, rank, []any{keyword}
	}

	like := "%" + keyword + "%"
	preds := make([]string, 0, len(textColumns))
	ranks := make([]string, 0, len(textColumns))
	weight := float64(len(textColumns))
	for _, col := range textColumns {
		preds = append(preds, fmt.Sprintf("%s.%s LIKE ?", table, col))
		ranks = append(ranks, fmt.Sprintf("(CASE WHEN %s.%s LIKE ? THEN %.1f ELSE 0.0 END)", table, col, weight))
		predArgs = append(predArgs, like)
		rankArgs = append(rankArgs, like)
		weight--
	}
	pred = "(" + strings.Join(preds, " OR ") + ")"
	rank = "(" + strings.Join(ranks, " + ") + ")"
	return pred, predArgs, rank, rankArgs
}

// searchOrderings composes the full ordering: relevance first when a keyword
// was given, then the requested column, then the primary key descending as a
// deterministic tie-break so pagination stays stable across pages.
func searchOrderings(table string, withRank bool, sort SortKey, dir SortDirection) []string {
	col, ok := sortColumns[sort]
	if !ok {
		col = sortColumns[SortUpdatedAt]
	}
	if dir != SortAsc {
		dir = SortDesc
	}
	orderings := make([]string, 0, 3)
	if withRank {
		orderings = append(orderings, "rank DESC NULLS LAST")
	}
	orderings = append(orderings,
		fmt.Sprintf("%s.%s %s NULLS LAST", table, col, dir),
		fmt.Sprintf("%s.id DESC", table),
	)
	return orderings
}
