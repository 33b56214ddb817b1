package lexer

import (
	"sort"
	"strings"
)

// keywords is the SQLite keyword set, minus the words SQLite also accepts as
// plain identifiers. Those are left out so osquery columns such as key,
// action and query lex as identifiers.
var keywords = map[string]struct{}{}

func init() {
	for _, kw := range strings.Fields(`
		ADD ALL ALTER AND AS ASC AUTOINCREMENT BETWEEN BY CASE CAST CHECK
		COLLATE COMMIT CONSTRAINT CREATE CROSS CURRENT CURRENT_DATE
		CURRENT_TIME CURRENT_TIMESTAMP DEFAULT DEFERRABLE DELETE DESC
		DISTINCT DROP ELSE END ESCAPE EXCEPT EXISTS FILTER FOLLOWING FOREIGN
		FROM FULL GLOB GROUP HAVING IF IN INDEX INDEXED INNER INSERT
		INTERSECT INTO IS ISNULL JOIN LEFT LIKE LIMIT MATCH NATURAL NOT
		NOTHING NOTNULL NULL OFFSET ON OR ORDER OUTER OVER PARTITION PRECEDING
		PRIMARY RANGE RECURSIVE REFERENCES REGEXP RETURNING RIGHT ROWS SELECT
		SET TABLE THEN TO TRANSACTION UNBOUNDED UNION UNIQUE UPDATE USING
		VALUES WHEN WHERE WINDOW WITH`) {
		keywords[kw] = struct{}{}
	}
}

// IsKeyword reports whether word is a keyword, ignoring case.
func IsKeyword(word string) bool {
	_, ok := keywords[strings.ToUpper(word)]
	return ok
}

// Keywords returns the keyword set in upper case, sorted.
func Keywords() []string {
	out := make([]string, 0, len(keywords))
	for kw := range keywords {
		out = append(out, kw)
	}
	sort.Strings(out)
	return out
}

// Keywords that change the clause a query is in.
var (
	tableIntroducers = map[string]bool{"FROM": true, "JOIN": true}
	filterKeywords   = map[string]bool{
		"WHERE": true, "ON": true, "USING": true, "HAVING": true,
		"GROUP": true, "ORDER": true, "LIMIT": true, "OFFSET": true,
		"WINDOW": true, "UNION": true, "EXCEPT": true, "INTERSECT": true,
		"VALUES": true, "SET": true,
	}
)
