package hssp

import "strings"

// Editor is a mutable file list that packs into archives. It holds no format
// logic of its own.
type Editor struct {
	files   []File
	comment string
}

func NewEditor() *Editor { return &Editor{} }

// Import replaces the editor's files with the contents of buf.
func (e *Editor) Import(buf []byte, opts ...ReadOption) error {
	a, err := Parse(buf, opts...)
	if err != nil {
		return err
	}
	e.files = a.Files
	e.comment = a.Report.Comment
	return nil
}

func (e *Editor) SetComment(c string) { e.comment = c }
func (e *Editor) Comment() string     { return e.comment }

// Files returns a copy of the current file list.
func (e *Editor) Files() []File {
	out := make([]File, len(e.files))
	for i, f := range e.files {
		out[i] = f.clone()
	}
	return out
}

// ListFiles returns the paths of all entries in order.
func (e *Editor) ListFiles() []string {
	paths := make([]string, len(e.files))
	for i, f := range e.files {
		paths[i] = f.Path
	}
	return paths
}

// File returns the entry at path.
func (e *Editor) File(path string) (File, bool) {
	for _, f := range e.files {
		if f.Path == path {
			return f.clone(), true
		}
	}
	return File{}, false
}

func (e *Editor) RemoveFile(path string) {
	e.filter(func(f File) bool { return f.Path != path })
}

// RemoveFolder removes every entry whose path starts with prefix.
func (e *Editor) RemoveFolder(prefix string) {
	e.filter(func(f File) bool { return !strings.HasPrefix(f.Path, prefix) })
}

func (e *Editor) filter(keep func(File) bool) {
	kept := e.files[:0]
	for _, f := range e.files {
		if keep(f) {
			kept = append(kept, f)
		}
	}
	clear(e.files[len(kept):])
	e.files = kept
}

// CreateFolder appends a directory entry.
func (e *Editor) CreateFolder(path string, attrs Attributes) {
	attrs.IsDirectory = true
	e.files = append(e.files, File{Path: path, Attributes: attrs})
}

// CreateFile appends a file entry. contents is copied.
func (e *Editor) CreateFile(path string, contents []byte, attrs Attributes) {
	attrs.IsDirectory = false
	e.files = append(e.files, File{Path: path, Contents: append([]byte{}, contents...), Attributes: attrs})
}

// Pack encodes the current files. The editor comment applies unless opts set one.
func (e *Editor) Pack(opts ...WriteOption) ([]byte, error) {
	return Create(e.files, e.withComment(opts)...)
}

// PackSplit encodes the current files into count volumes.
func (e *Editor) PackSplit(count int, opts ...WriteOption) ([][]byte, error) {
	return CreateSplit(e.files, count, e.withComment(opts)...)
}

func (e *Editor) withComment(opts []WriteOption) []WriteOption {
	if e.comment == "" {
		return opts
	}
	return append([]WriteOption{WithComment(e.comment)}, opts...)
}
