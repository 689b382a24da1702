package detections

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
)

var errNoClasses = errors.New("class file contains no labels")

// LoadClassNames reads one label per line. Blank lines are skipped and do not
// consume a class index.
func LoadClassNames(r io.Reader) (map[int]string, error) {
	classNames := make(map[int]string)
	scanner := bufio.NewScanner(r)
	index := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		classNames[index] = line
		index++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read class names: %w", err)
	}
	if len(classNames) == 0 {
		return nil, errNoClasses
	}
	return classNames, nil
}

func loadClassNamesFS(fsys fs.FS, name string) (map[int]string, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadClassNames(f)
}
