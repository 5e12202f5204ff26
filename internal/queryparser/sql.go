package queryparser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"musicsearch/searchcore/internal/domain"
)

// SQLQuery is the parsed form of a "SELECT ... WHERE ..." query (spec §4.5).
type SQLQuery struct {
	SearchType domain.SearchType
	Clauses    map[string]string // recognized key -> normalized value
	OrderBy    string
	Descending bool
	Limit      int
	Offset     int
}

var sqlShapeRe = regexp.MustCompile(`(?is)^\s*SELECT\s+(\S+)\s+WHERE\s+(.+?)(?:\s+ORDER\s+BY\s+(\S+)(?:\s+(ASC|DESC))?)?(?:\s+LIMIT\s+(\d+)(?:\s+OFFSET\s+(\d+))?)?\s*$`)

var clauseRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(\w+)\s*=\s*"([^"]*)"$`),
	regexp.MustCompile(`(?i)^(\w+)\s*=\s*([\d.]+)$`),
	regexp.MustCompile(`(?i)^(\w+)\s+BETWEEN\s+([\d.]+)\s+AND\s+([\d.]+)$`),
	regexp.MustCompile(`(?i)^(\w+)\s*(>=|<=)\s*([\d.]+)$`),
}

var keyAliases = map[string]string{
	"artist": "artist", "name": "artist",
	"album": "album", "release": "album",
	"track": "track", "title": "track", "song": "track",
	"year": "year", "format": "format", "bitrate": "bitrate",
	"source": "source", "country": "country", "label": "label",
	"seeders": "seeders", "size": "size",
}

var orderByKeys = map[string]bool{
	"quality": true, "score": true, "seeders": true, "size": true,
	"date": true, "uploaded": true, "relevance": true,
}

// IsSQLQuery reports whether a raw query looks like the SQL-ish grammar.
func IsSQLQuery(raw string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(raw)), "SELECT")
}

// ParseSQL parses the "SELECT type WHERE clauses [ORDER BY ...] [LIMIT n
// [OFFSET m]]" grammar. Unknown clause keys are ignored; an unparseable
// query returns domain.ErrInvalidSQLQuery.
func ParseSQL(raw string) (SQLQuery, error) {
	m := sqlShapeRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return SQLQuery{}, domain.ErrInvalidSQLQuery
	}

	result := SQLQuery{
		SearchType: domain.SearchType(strings.ToLower(m[1])),
		Clauses:    make(map[string]string),
		OrderBy:    "quality",
		Descending: true,
		Limit:      50,
	}

	for _, clause := range splitClauses(m[2]) {
		key, value, ok := parseClause(clause)
		if !ok {
			continue
		}
		canonical, recognized := keyAliases[strings.ToLower(key)]
		if !recognized {
			continue
		}
		result.Clauses[canonical] = value
	}

	if m[3] != "" {
		orderBy := strings.ToLower(m[3])
		if orderByKeys[orderBy] {
			result.OrderBy = orderBy
		}
	}
	if strings.EqualFold(m[4], "ASC") {
		result.Descending = false
	}
	if m[5] != "" {
		if n, err := strconv.Atoi(m[5]); err == nil {
			result.Limit = n
		}
	}
	if m[6] != "" {
		if n, err := strconv.Atoi(m[6]); err == nil {
			result.Offset = n
		}
	}

	return result, nil
}

// splitClauses splits on top-level " AND " while leaving BETWEEN's own AND
// intact (BETWEEN clauses are matched as a single token before splitting,
// since they cannot contain nested AND boundaries in this grammar).
func splitClauses(where string) []string {
	betweenRe := regexp.MustCompile(`(?i)\w+\s+BETWEEN\s+[\d.]+\s+AND\s+[\d.]+`)
	placeholders := make(map[string]string)
	masked := betweenRe.ReplaceAllStringFunc(where, func(match string) string {
		key := fmt.Sprintf("__BETWEEN_%d__", len(placeholders))
		placeholders[key] = match
		return key
	})

	var clauses []string
	for _, part := range regexp.MustCompile(`(?i)\s+AND\s+`).Split(masked, -1) {
		part = strings.TrimSpace(part)
		if original, ok := placeholders[part]; ok {
			part = original
		}
		clauses = append(clauses, part)
	}
	return clauses
}

func parseClause(clause string) (key, value string, ok bool) {
	for _, re := range clauseRes {
		m := re.FindStringSubmatch(clause)
		if m == nil {
			continue
		}
		switch len(m) {
		case 3:
			return m[1], m[2], true
		case 4:
			// BETWEEN or comparison form; encode operator+bound(s) into value.
			if strings.Contains(strings.ToUpper(clause), "BETWEEN") {
				return m[1], m[2] + ".." + m[3], true
			}
			return m[1], m[2] + m[3], true
		}
	}
	return "", "", false
}
