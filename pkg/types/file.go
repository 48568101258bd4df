package types

// ProjectFile is one file of a generated application held in a working copy.
// Files are replaced wholesale on update; there is no partial-content
// representation.
type ProjectFile struct {
	// Path is the project-relative path and the identity of the file.
	Path string

	// Content is the full current text of the file.
	Content string

	// Language is an optional language tag used when rendering the file
	// into a prompt. Empty means unknown.
	Language string
}

// NewProjectFile creates a file with the given path and content.
func NewProjectFile(path, content string) *ProjectFile {
	return &ProjectFile{
		Path:    path,
		Content: content,
	}
}

// WithLanguage sets the language tag and returns the file for chaining.
func (f *ProjectFile) WithLanguage(language string) *ProjectFile {
	f.Language = language
	return f
}

// Clone returns an independent copy of the file.
func (f *ProjectFile) Clone() *ProjectFile {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

// CloneFiles returns independent copies of the given files.
func CloneFiles(files []*ProjectFile) []*ProjectFile {
	if files == nil {
		return nil
	}
	out := make([]*ProjectFile, len(files))
	for i, f := range files {
		out[i] = f.Clone()
	}
	return out
}
