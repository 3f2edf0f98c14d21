package discovery

import (
	"path/filepath"
	"regexp"
	"strings"
)

// migrationFileRegex matches the following patterns
// 001.sql
// 001_name.sql
// 001_name.up.sql
// V1__name.sql
// V1.2.3__name.sql
var migrationFileRegex = regexp.MustCompile(`^[vV]?([0-9]+(?:\.[0-9]+)*)(?:__?([a-zA-Z0-9_\-]+?))?(\.up)?\.sql$`)

// ClassifyFile determines the file type, migration version and descriptive
// name from a file name
func ClassifyFile(filename string) (FileType, Version, string) {
	if m := migrationFileRegex.FindStringSubmatch(filename); m != nil {
		version, err := ParseVersion(m[1])
		if err == nil {
			return FileTypeMigration, version, m[2]
		}
	}

	if strings.HasSuffix(strings.ToLower(filename), "_drop.sql") {
		return FileTypeDrop, nil, ""
	}

	return FileTypeScript, nil, ""
}

// ClassifyPath determines file type from a full path
func ClassifyPath(path string) FileType {
	ft, _, _ := ClassifyFile(filepath.Base(path))
	return ft
}

// IsSQLFile returns true if the file name carries the .sql extension. Down
// migrations (*.down.sql) are never loaded and report false.
func IsSQLFile(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".sql") && !strings.HasSuffix(lower, ".down.sql")
}
