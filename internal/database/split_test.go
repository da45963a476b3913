package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSimple(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "two statements",
			script: "CREATE TABLE a (id INT);\nINSERT INTO a VALUES (1);\n",
			want:   []string{"CREATE TABLE a (id INT)", "INSERT INTO a VALUES (1)"},
		},
		{
			name:   "semicolon inside string",
			script: "INSERT INTO notes VALUES ('a; b');",
			want:   []string{"INSERT INTO notes VALUES ('a; b')"},
		},
		{
			name:   "escaped quote",
			script: "INSERT INTO notes VALUES ('it''s; fine'); SELECT 1",
			want:   []string{"INSERT INTO notes VALUES ('it''s; fine')", "SELECT 1"},
		},
		{
			name:   "comments dropped",
			script: "-- seed data; not a statement\nSELECT 1;",
			want:   []string{"SELECT 1"},
		},
		{
			name:   "empty",
			script: "  ;\n ; ",
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitStatements(DialectSQLite, tt.script)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitSimpleCompound(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		script  string
		want    []string
	}{
		{
			name:    "block comment with semicolon and quote",
			dialect: DialectSQLite,
			script:  "/* seed; then page's */\nINSERT INTO t VALUES (1);",
			want:    []string{"INSERT INTO t VALUES (1)"},
		},
		{
			name:    "sqlite trigger body",
			dialect: DialectSQLite,
			script: "INSERT INTO t VALUES (1);\n" +
				"CREATE TRIGGER tr AFTER INSERT ON t BEGIN INSERT INTO u VALUES (1); UPDATE u SET n = n + 1; END;\n" +
				"SELECT 1;",
			want: []string{
				"INSERT INTO t VALUES (1)",
				"CREATE TRIGGER tr AFTER INSERT ON t BEGIN INSERT INTO u VALUES (1); UPDATE u SET n = n + 1; END",
				"SELECT 1",
			},
		},
		{
			name:    "case expression inside trigger",
			dialect: DialectSQLite,
			script: "CREATE TRIGGER tr AFTER INSERT ON t BEGIN UPDATE u SET n = CASE WHEN n > 1 THEN 0 ELSE n END; END;\n" +
				"SELECT 2;",
			want: []string{
				"CREATE TRIGGER tr AFTER INSERT ON t BEGIN UPDATE u SET n = CASE WHEN n > 1 THEN 0 ELSE n END; END",
				"SELECT 2",
			},
		},
		{
			name:    "begin transaction is a statement",
			dialect: DialectSQLite,
			script:  "BEGIN; INSERT INTO t VALUES (1); COMMIT;",
			want:    []string{"BEGIN", "INSERT INTO t VALUES (1)", "COMMIT"},
		},
		{
			name:    "mysql backslash escape",
			dialect: DialectMySQL,
			script:  `INSERT INTO notes VALUES ('it\'s; x'); SELECT 1;`,
			want:    []string{`INSERT INTO notes VALUES ('it\'s; x')`, "SELECT 1"},
		},
		{
			name:    "mysql hash comment",
			dialect: DialectMySQL,
			script:  "# drop; later\nSELECT 1;",
			want:    []string{"SELECT 1"},
		},
		{
			name:    "mysql procedure with control flow",
			dialect: DialectMySQL,
			script: "CREATE PROCEDURE p() BEGIN IF 1 THEN SELECT 1; END IF; SELECT 2; END;\n" +
				"CALL p();",
			want: []string{
				"CREATE PROCEDURE p() BEGIN IF 1 THEN SELECT 1; END IF; SELECT 2; END",
				"CALL p()",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitStatements(tt.dialect, tt.script)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitPostgres(t *testing.T) {
	got, err := SplitStatements(DialectPostgres, "CREATE TABLE a (id int);\nINSERT INTO a VALUES (1);")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE a (id int)", got[0])
	assert.Equal(t, "INSERT INTO a VALUES (1)", got[1])
}

func TestSplitPostgresRejectsInvalidSQL(t *testing.T) {
	_, err := SplitStatements(DialectPostgres, "CREAT TABLE a (id int);")
	assert.Error(t, err)
}
