// Package labels loads the classifier's label dictionary.
package labels

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/example/krishak/internal/diagnosis"
)

// ErrEmptyDictionary is returned when a dictionary has no usable lines.
var ErrEmptyDictionary = errors.New("labels: dictionary is empty")

// Load reads one label per line. Trailing whitespace is trimmed and blank lines are skipped;
// line order defines the alignment with the classifier output.
func Load(r io.Reader) (diagnosis.LabelList, error) {
	var out diagnosis.LabelList
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), " \t\r\n")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read label dictionary: %w", err)
	}
	if len(out) == 0 {
		return nil, ErrEmptyDictionary
	}
	return out, nil
}

// LoadFile reads the dictionary at path.
func LoadFile(path string) (diagnosis.LabelList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open label dictionary: %w", err)
	}
	defer f.Close()
	return Load(f)
}
