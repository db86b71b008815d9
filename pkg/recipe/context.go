package recipe

import (
	"path/filepath"
)

// Folders are the three trees one build invocation owns.
type Folders struct {
	Source  string
	Build   string
	Package string
}

// BuildContext is everything one invocation resolved. It is created after
// option resolution, handed to every later stage and dropped afterwards.
type BuildContext struct {
	Options   *Resolved
	PackageID string
	Folders   Folders
	// SourceTree is the extracted, renamed source directory.
	SourceTree string
}

// NewBuildContext binds resolved options to the folders of one invocation.
func (r *Recipe) NewBuildContext(resolved *Resolved, folders Folders) *BuildContext {
	return &BuildContext{
		Options:    resolved,
		PackageID:  r.PackageID(resolved),
		Folders:    folders,
		SourceTree: filepath.Join(folders.Source, r.SourceSubfolder),
	}
}

// Settings is shorthand for bc.Options.Settings().
func (bc *BuildContext) Settings() Settings {
	return bc.Options.Settings()
}
