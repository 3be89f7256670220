package model

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type Labels []string

// LoadLabels reads one class label per line from path.
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &OpError{Op: "model.load_labels", Kind: KindNotFound, Path: path, Err: err}
	}
	defer f.Close()

	labels, err := ParseLabels(f)
	if err != nil {
		return nil, &OpError{Op: "model.load_labels", Kind: KindInvalidInput, Path: path, Err: err}
	}
	return labels, nil
}

// ParseLabels drops blank lines and strips the "<index> " prefix that
// image-classifier exporters put in front of each class name. The prefix is
// only removed when it matches the label's position, so "2000 rupees" stays intact.
func ParseLabels(r io.Reader) (Labels, error) {
	var labels Labels
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		labels = append(labels, stripIndex(line, len(labels)))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels found")
	}
	return labels, nil
}

func stripIndex(line string, pos int) string {
	head, rest, ok := strings.Cut(line, " ")
	if !ok || strings.TrimSpace(rest) == "" || head != strconv.Itoa(pos) {
		return line
	}
	return strings.TrimSpace(rest)
}

// IsNoCurrency reports whether label is the model's explicit "nothing here" class.
func IsNoCurrency(label string) bool {
	switch strings.ToLower(strings.ReplaceAll(label, " ", "_")) {
	case "no_currency", "none", "background", "nothing":
		return true
	}
	return false
}
