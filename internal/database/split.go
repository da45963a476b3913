package database

import (
	"fmt"
	"strings"
	"unicode"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// SplitStatements splits a SQL script into individual statements. PostgreSQL
// scripts go through the real parser, so a syntax error is reported here
// rather than half way through a migration. Other dialects use a
// quote-aware splitter.
func SplitStatements(dialect Dialect, script string) ([]string, error) {
	if dialect == DialectPostgres {
		return splitPostgres(script)
	}
	return splitSimple(dialect, script), nil
}

func splitPostgres(script string) ([]string, error) {
	tree, err := pg_query.Parse(script)
	if err != nil {
		return nil, fmt.Errorf("invalid SQL: %w", err)
	}

	var out []string
	for _, raw := range tree.Stmts {
		start := int(raw.StmtLocation)
		end := len(script)
		if raw.StmtLen > 0 {
			end = start + int(raw.StmtLen)
		}
		if start < 0 || end > len(script) || start > end {
			return nil, fmt.Errorf("statement location out of range: %d..%d", start, end)
		}
		if stmt := strings.TrimSpace(script[start:end]); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out, nil
}

// splitSimple splits on semicolons outside quotes, comments and compound
// statement bodies (BEGIN ... END of triggers, procedures, functions and
// events). MySQL strings also honour backslash escapes.
func splitSimple(dialect Dialect, script string) []string {
	var (
		out       []string
		current   strings.Builder
		quote     rune
		depth     int
		compound  bool
		skipWord  bool
		backslash = dialect == DialectMySQL
	)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			out = append(out, stmt)
		}
		current.Reset()
		depth = 0
		compound = false
	}

	runes := []rune(script)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if quote != 0 {
			current.WriteRune(r)
			if backslash && quote != '`' && r == '\\' && i+1 < len(runes) {
				current.WriteRune(runes[i+1])
				i++
				continue
			}
			if r == quote {
				// doubled quote is an escaped quote
				if i+1 < len(runes) && runes[i+1] == quote {
					current.WriteRune(runes[i+1])
					i++
					continue
				}
				quote = 0
			}
			continue
		}

		switch {
		case r == '\'' || r == '"' || r == '`':
			quote = r
			current.WriteRune(r)
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-',
			r == '#' && dialect == DialectMySQL:
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			current.WriteRune('\n')
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i < len(runes) && !(runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '/') {
				i++
			}
			i++
			current.WriteRune(' ')
		case isWordRune(r):
			j := i
			for j < len(runes) && isWordRune(runes[j]) {
				j++
			}
			word := strings.ToUpper(string(runes[i:j]))
			current.WriteString(string(runes[i:j]))
			i = j - 1

			if skipWord {
				skipWord = false
				continue
			}
			switch word {
			case "TRIGGER", "PROCEDURE", "FUNCTION", "EVENT":
				if depth == 0 && startsWithCreate(current.String()) {
					compound = true
				}
			case "BEGIN":
				if compound {
					depth++
				}
			case "CASE":
				if depth > 0 {
					depth++
				}
			case "END":
				if depth == 0 {
					continue
				}
				switch nextWord(runes, j) {
				case "IF", "LOOP", "WHILE", "REPEAT":
					// closes a block that never opened one
					skipWord = true
				case "CASE":
					skipWord = true
					depth--
				default:
					depth--
				}
			}
		case r == ';' && depth == 0:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func startsWithCreate(stmt string) bool {
	fields := strings.Fields(stmt)
	return len(fields) > 0 && strings.EqualFold(fields[0], "CREATE")
}

func nextWord(runes []rune, i int) string {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	j := i
	for j < len(runes) && isWordRune(runes[j]) {
		j++
	}
	return strings.ToUpper(string(runes[i:j]))
}

