package storage

import (
	"math"
	"strings"
)

// Normalize clamps paging input to values every backend can execute:
// a page number below 1 becomes 1 and a negative page size becomes 0,
// which yields an empty page rather than an error.
func Normalize(pageNumber, pageSize int) (int, int) {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize < 0 {
		pageSize = 0
	}
	return pageNumber, pageSize
}

// Offset is the number of rows skipped before the given page.
// Inputs must already be normalized. A product that would overflow int
// saturates at math.MaxInt, which lies past the end of any result set.
func Offset(pageNumber, pageSize int) int {
	if pageSize == 0 {
		return 0
	}
	if pageNumber-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (pageNumber - 1) * pageSize
}

// LikePattern turns a free-text search term into a SQL LIKE pattern
// matching it as a substring, escaping LIKE wildcards with a backslash.
// Use it together with ESCAPE '\'.
func LikePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(term)) + "%"
}
