package repository

import (
	"strconv"
	"strings"
	"time"

	"raccoon/internal/db"
	apperrors "raccoon/internal/errors"
	"raccoon/internal/utils"
)

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// ReservationFilter holds the optional list filters. Empty fields are ignored;
// the rest are combined with AND.
type ReservationFilter struct {
	Name         string
	Status       string
	Subscription string
	ServiceType  string
	DateFrom     string
	DateTo       string
}

// Page selects a 1-based page and an ordering such as "-created_at" or "date".
type Page struct {
	Page    int
	PerPage int
	Sort    string
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.PerPage
}

func (p Page) Validate() error {
	if p.Page < 1 {
		return apperrors.InvalidQuery("page must be >= 1")
	}
	if p.PerPage < 1 || p.PerPage > MaxPerPage {
		return apperrors.InvalidQuery("per_page must be between 1 and %d", MaxPerPage)
	}
	return nil
}

var sortColumns = map[string]string{
	"created_at":  "created_at",
	"date":        "date",
	"name":        "name",
	"total_price": "total_price",
}

// orderBy turns a sort key into an ORDER BY clause. The id tiebreaker keeps
// pages stable when sort values repeat.
func orderBy(sort string) (string, error) {
	sort = strings.TrimSpace(sort)
	if sort == "" {
		return " ORDER BY created_at DESC, id DESC", nil
	}
	dir := "ASC"
	if strings.HasPrefix(sort, "-") {
		dir = "DESC"
		sort = sort[1:]
	}
	col, ok := sortColumns[sort]
	if !ok {
		return "", apperrors.InvalidQuery("unknown sort field %q", sort)
	}
	return " ORDER BY " + col + " " + dir + ", id " + dir, nil
}

func parseDate(field, value string) (time.Time, error) {
	d, err := utils.ParseDate(value)
	if err != nil {
		return time.Time{}, apperrors.InvalidQuery("%s must be a date in YYYY-MM-DD format", field)
	}
	return d, nil
}

// where builds the WHERE clause and its positional arguments.
func (f ReservationFilter) where() (string, []any, error) {
	query := " WHERE 1=1"
	args := []any{}
	idx := 1

	if f.Name != "" {
		query += " AND name ILIKE $" + strconv.Itoa(idx)
		args = append(args, "%"+escapeLike(f.Name)+"%")
		idx++
	}
	if f.Status != "" {
		if !db.Status(f.Status).Valid() {
			return "", nil, apperrors.InvalidQuery("unknown status %q", f.Status)
		}
		query += " AND status = $" + strconv.Itoa(idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Subscription != "" {
		query += " AND subscription = $" + strconv.Itoa(idx)
		args = append(args, f.Subscription)
		idx++
	}
	if f.ServiceType != "" {
		query += " AND service_type = $" + strconv.Itoa(idx)
		args = append(args, f.ServiceType)
		idx++
	}

	var from, to time.Time
	var err error
	if f.DateFrom != "" {
		if from, err = parseDate("date_from", f.DateFrom); err != nil {
			return "", nil, err
		}
		query += " AND date >= $" + strconv.Itoa(idx)
		args = append(args, f.DateFrom)
		idx++
	}
	if f.DateTo != "" {
		if to, err = parseDate("date_to", f.DateTo); err != nil {
			return "", nil, err
		}
		query += " AND date <= $" + strconv.Itoa(idx)
		args = append(args, f.DateTo)
		idx++
	}
	if f.DateFrom != "" && f.DateTo != "" && from.After(to) {
		return "", nil, apperrors.InvalidQuery("date_from must not be after date_to")
	}

	return query, args, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
