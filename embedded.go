package main

import (
	"embed"
	"io/fs"
	"os"
	"path/filepath"
)

//go:embed assets/coco-classes.txt
var embeddedFiles embed.FS

const embeddedClassesFile = "assets/coco-classes.txt"

// classesSource resolves where the class table is read from. An empty path
// selects the COCO table built into the binary.
func classesSource(path string) (fs.FS, string) {
	if path == "" {
		return embeddedFiles, embeddedClassesFile
	}
	return os.DirFS(filepath.Dir(path)), filepath.Base(path)
}
