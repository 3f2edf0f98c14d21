package parser

import (
	"math/rand"
	"reflect"
	"strings"
	"sync"
	"testing"
)

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name   string
		script string
		want   []string
	}{
		{
			name:   "delimiter inside single quotes",
			script: `;';';`,
			want:   []string{";", "';';"},
		},
		{
			name:   "escaped quote inside double quotes",
			script: `;"\";"`,
			want:   []string{";", `"\";"`},
		},
		{
			name:   "line comment swallows delimiter",
			script: ";--;\n;",
			want:   []string{";", "\n;"},
		},
		{
			name:   "block comment swallows delimiters and newlines",
			script: ";/*;\n;*/;",
			want:   []string{";", ";"},
		},
		{
			name:   "trailing statement without delimiter",
			script: "A;B;C",
			want:   []string{"A;", "B;", "C"},
		},
		{
			name:   "every statement terminated",
			script: "A;B;C;",
			want:   []string{"A;", "B;", "C;"},
		},
		{
			name:   "empty script",
			script: "",
			want:   nil,
		},
		{
			name:   "whitespace only",
			script: " \n\t",
			want:   []string{" \n\t"},
		},
		{
			name:   "whitespace between statements is kept",
			script: "SELECT 1;\nSELECT 2;\n",
			want:   []string{"SELECT 1;", "\nSELECT 2;", "\n"},
		},
		{
			name:   "double quotes inside single quotes",
			script: `SELECT 'say "hi";';SELECT 2;`,
			want:   []string{`SELECT 'say "hi";';`, "SELECT 2;"},
		},
		{
			name:   "single quotes inside double quotes",
			script: `SELECT "it's;" FROM t;`,
			want:   []string{`SELECT "it's;" FROM t;`},
		},
		{
			name:   "backslash escapes other quote kind",
			script: `SELECT '\"';SELECT "\'";`,
			want:   []string{`SELECT '\"';`, `SELECT "\'";`},
		},
		{
			name:   "escaped backslash before closing quote",
			script: `SELECT 'a\\';SELECT 2;`,
			want:   []string{`SELECT 'a\\';`, "SELECT 2;"},
		},
		{
			name:   "escaped delimiter inside quotes",
			script: `SELECT 'a\;b';`,
			want:   []string{`SELECT 'a\;b';`},
		},
		{
			name:   "backslash outside quotes is plain text",
			script: `SELECT \;SELECT 2;`,
			want:   []string{`SELECT \;`, "SELECT 2;"},
		},
		{
			name:   "trailing backslash in quote",
			script: `SELECT 'abc\`,
			want:   []string{`SELECT 'abc\`},
		},
		{
			name:   "line comment at end of input",
			script: "SELECT 1; -- done",
			want:   []string{"SELECT 1;", " "},
		},
		{
			name:   "script that is only a comment",
			script: "-- just a comment",
			want:   nil,
		},
		{
			name:   "quotes inside line comment are inert",
			script: "SELECT 1; -- it's \"quoted\"\nSELECT 2;",
			want:   []string{"SELECT 1;", " \nSELECT 2;"},
		},
		{
			name:   "quotes inside block comment are inert",
			script: "SELECT /* it's; \"x\" */ 1;",
			want:   []string{"SELECT  1;"},
		},
		{
			name:   "block opener inside line comment",
			script: "-- /* not a block\nSELECT 1;",
			want:   []string{"\nSELECT 1;"},
		},
		{
			name:   "line opener inside block comment",
			script: "/* -- still block */SELECT 1;",
			want:   []string{"SELECT 1;"},
		},
		{
			name:   "comment openers inside quotes are text",
			script: "SELECT '--', '/*';",
			want:   []string{"SELECT '--', '/*';"},
		},
		{
			name:   "single dash and slash are text",
			script: "SELECT 3 - 1 / 2;",
			want:   []string{"SELECT 3 - 1 / 2;"},
		},
		{
			name:   "dash at end of input",
			script: "SELECT 1 -",
			want:   []string{"SELECT 1 -"},
		},
		{
			name:   "block comments do not nest",
			script: "/* a /* b */ SELECT 1; */",
			want:   []string{" SELECT 1;", " */"},
		},
		{
			name:   "close marker needs both characters",
			script: "/* a * / b */x;",
			want:   []string{"x;"},
		},
		{
			name:   "carriage return does not end line comment",
			script: "SELECT 1; -- a\rSELECT 2;\nSELECT 3;",
			want:   []string{"SELECT 1;", " \nSELECT 3;"},
		},
		{
			name:   "crlf line ending keeps the newline",
			script: "SELECT 1; -- a\r\nSELECT 2;",
			want:   []string{"SELECT 1;", " \nSELECT 2;"},
		},
		{
			name:   "unterminated single quote is flushed",
			script: "SELECT 1; SELECT 'abc;",
			want:   []string{"SELECT 1;", " SELECT 'abc;"},
		},
		{
			name:   "unterminated double quote is flushed",
			script: `SELECT "abc; def`,
			want:   []string{`SELECT "abc; def`},
		},
		{
			name:   "unterminated block comment is discarded",
			script: "SELECT 1; /* SELECT 2;",
			want:   []string{"SELECT 1;", " "},
		},
		{
			name:   "multibyte text passes through",
			script: "INSERT INTO t VALUES ('héllo; wörld');SELECT '日本';",
			want:   []string{"INSERT INTO t VALUES ('héllo; wörld');", "SELECT '日本';"},
		},
		{
			name:   "consecutive delimiters",
			script: ";;;",
			want:   []string{";", ";", ";"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitStatements(tt.script)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitStatements(%q) = %q, want %q", tt.script, got, tt.want)
			}
		})
	}
}

func TestSplit_FinalState(t *testing.T) {
	tests := []struct {
		script           string
		want             ScanState
		wantUnterminated bool
	}{
		{"SELECT 1;", Normal, false},
		{"SELECT 'a", InSingleQuote, true},
		{`SELECT "a`, InDoubleQuote, true},
		{"SELECT 1; -- x", InLineComment, false},
		{"SELECT 1; /* x", InBlockComment, true},
		{"SELECT 1; /* x */", Normal, false},
		{`SELECT 'a\'`, InSingleQuote, true},
	}

	for _, tt := range tests {
		result := Split(tt.script)
		if result.Final != tt.want {
			t.Errorf("Split(%q).Final = %v, want %v", tt.script, result.Final, tt.want)
		}
		if result.Unterminated() != tt.wantUnterminated {
			t.Errorf("Split(%q).Unterminated() = %v, want %v", tt.script, result.Unterminated(), tt.wantUnterminated)
		}
	}
}

func TestSplit_Offsets(t *testing.T) {
	script := "SELECT 1;\n\n  -- note\n  SELECT 2;   \n"
	result := Split(script)

	if len(result.Offsets) != len(result.Statements) {
		t.Fatalf("got %d offsets for %d statements", len(result.Offsets), len(result.Statements))
	}

	second := strings.Index(script, "SELECT 2;")
	want := []int{0, second, second + len("SELECT 2;")}
	if !reflect.DeepEqual(result.Offsets, want) {
		t.Errorf("Offsets = %v, want %v", result.Offsets, want)
	}
}

func TestScanState_String(t *testing.T) {
	tests := []struct {
		state ScanState
		want  string
	}{
		{Normal, "normal"},
		{InSingleQuote, "single-quote"},
		{InDoubleQuote, "double-quote"},
		{InLineComment, "line-comment"},
		{InBlockComment, "block-comment"},
		{ScanState(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("ScanState(%d).String() = %q, want %q", int(tt.state), got, tt.want)
		}
	}
}

// randomScript builds a script from characters that drive every transition
func randomScript(r *rand.Rand, alphabet string, n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[r.Intn(len(alphabet))])
	}
	return b.String()
}

func TestSplitStatements_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(20240601))
	const alphabet = "ab ;'\"\\-/*\n\r"

	for i := 0; i < 2000; i++ {
		script := randomScript(r, alphabet, r.Intn(64))
		stmts := SplitStatements(script)

		for j, stmt := range stmts {
			if stmt == "" {
				t.Fatalf("script %q: statement %d is empty", script, j)
			}
			if j < len(stmts)-1 && !strings.HasSuffix(stmt, ";") {
				t.Fatalf("script %q: statement %d %q does not end with a delimiter", script, j, stmt)
			}
		}

		if len(strings.Join(stmts, "")) > len(script) {
			t.Fatalf("script %q: output longer than input", script)
		}
	}
}

func TestSplitStatements_LosslessWithoutComments(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	// No '-' or '/', so there is nothing to remove.
	const alphabet = "ab ;'\"\\\n"

	for i := 0; i < 2000; i++ {
		script := randomScript(r, alphabet, r.Intn(64))
		if got := strings.Join(SplitStatements(script), ""); got != script {
			t.Fatalf("joined statements %q differ from script %q", got, script)
		}
	}
}

func TestSplitStatements_CommentErasure(t *testing.T) {
	script := "SELECT 1; -- secret;'\"\nSELECT /* hidden;\n'x' */ 2;"
	joined := strings.Join(SplitStatements(script), "")

	for _, hidden := range []string{"secret", "hidden", "'x'"} {
		if strings.Contains(joined, hidden) {
			t.Errorf("comment text %q leaked into %q", hidden, joined)
		}
	}
}

func TestSplitStatements_Concurrent(t *testing.T) {
	script := strings.Repeat("INSERT INTO t VALUES ('a;b'); -- c;\n", 200)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// 200 inserts plus the trailing newline
			if got := len(SplitStatements(script)); got != 201 {
				t.Errorf("got %d statements, want 201", got)
			}
		}()
	}
	wg.Wait()
}
