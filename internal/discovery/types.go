package discovery

import "time"

// DiscoveredFile represents a SQL script discovered during filesystem traversal
type DiscoveredFile struct {
	Path         string    // Absolute path to file
	RelativePath string    // Slash separated path relative to the base directory, the journal key
	Type         FileType  // Migration, script or drop script
	Version      Version   // Migration version, nil unless Type is FileTypeMigration
	Name         string    // Descriptive part of a migration file name
	ModTime      time.Time // Last modification time
}

// FileType indicates how a script takes part in a load
type FileType int

const (
	FileTypeScript    FileType = iota // Plain script, ordered by path
	FileTypeMigration                 // Matches V1.2__name.sql, 001_name.sql or 001.sql
	FileTypeDrop                      // Matches *_drop.sql
)

// String returns a string representation of FileType
func (ft FileType) String() string {
	switch ft {
	case FileTypeScript:
		return "script"
	case FileTypeMigration:
		return "migration"
	case FileTypeDrop:
		return "drop"
	default:
		return "unknown"
	}
}
