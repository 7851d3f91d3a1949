package handler

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/devfolio/devfolio-server/internal/domain"
	"github.com/devfolio/devfolio-server/internal/http/response"
	"github.com/devfolio/devfolio-server/internal/repository"
)

const (
	maxKeywordRunes  = 50
	maxCategoryRunes = 32
)

// Keywords may carry any letter or digit plus spaces; everything else is
// rejected before the query layer sees it.
var keywordPattern = regexp.MustCompile(`^[\p{L}\p{N}\s]*$`)

var loginIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{4,32}$`)

// parseSearchRequest validates the shared search query parameters. Sort key
// and direction are permissive (unknown values fall back to defaults); the
// rest fails hard with per-field errors.
func parseSearchRequest(r *http.Request, communityCategories bool) (repository.SearchRequest, []response.FieldError) {
	var fields []response.FieldError
	q := r.URL.Query()

	page := repository.DefaultPage
	if v := q.Get("page"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			fields = append(fields, response.FieldError{Field: "page", Reason: "must be an integer >= 0"})
		} else {
			page = parsed
		}
	}

	size := repository.DefaultPageSize
	if v := q.Get("size"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 || parsed > repository.MaxPageSize {
			fields = append(fields, response.FieldError{Field: "size", Reason: "must be an integer between 1 and 100"})
		} else {
			size = parsed
		}
	}

	keyword := strings.TrimSpace(q.Get("keyword"))
	if keyword != "" {
		if utf8.RuneCountInString(keyword) > maxKeywordRunes {
			fields = append(fields, response.FieldError{Field: "keyword", Reason: "must be at most 50 characters"})
		} else if !keywordPattern.MatchString(keyword) {
			fields = append(fields, response.FieldError{Field: "keyword", Reason: "may contain only letters, digits and spaces"})
		}
	}

	category := strings.TrimSpace(q.Get("category"))
	if category != "" {
		if communityCategories {
			if !domain.IsCommunityCategory(category) {
				fields = append(fields, response.FieldError{Field: "category", Reason: "unknown category"})
			}
		} else if utf8.RuneCountInString(category) > maxCategoryRunes {
			fields = append(fields, response.FieldError{Field: "category", Reason: "must be at most 32 characters"})
		}
	}

	if fields != nil {
		return repository.SearchRequest{}, fields
	}
	return repository.SearchRequest{
		PageRequest: repository.PageRequest{Page: page, PageSize: size},
		Keyword:     keyword,
		Category:    category,
		Sort:        repository.SortKeyFromField(q.Get("sort")),
		Direction:   repository.SortDirectionFromField(q.Get("direction")),
	}, nil
}

type signupRequest struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
}

func (req *signupRequest) validate() []response.FieldError {
	var fields []response.FieldError
	if !loginIDPattern.MatchString(req.LoginID) {
		fields = append(fields, response.FieldError{Field: "login_id", Reason: "must be 4-32 characters of letters, digits, dot, dash or underscore"})
	}
	// bcrypt ignores input beyond 72 bytes.
	if len(req.Password) < 8 || len(req.Password) > 72 {
		fields = append(fields, response.FieldError{Field: "password", Reason: "must be 8-72 characters"})
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		fields = append(fields, response.FieldError{Field: "email", Reason: "must be a valid email address"})
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(req.Nickname)); n < 1 || n > 32 {
		fields = append(fields, response.FieldError{Field: "nickname", Reason: "must be 1-32 characters"})
	}
	return fields
}

type loginRequest struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
}

func (req *loginRequest) validate() []response.FieldError {
	var fields []response.FieldError
	if req.LoginID == "" {
		fields = append(fields, response.FieldError{Field: "login_id", Reason: "is required"})
	}
	if req.Password == "" {
		fields = append(fields, response.FieldError{Field: "password", Reason: "is required"})
	}
	return fields
}
