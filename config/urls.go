package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineSize caps a single line of a URL list file.
const maxLineSize = 1 << 20

// ReadURLList reads a newline-separated URL list from path.
//
// Lines are trimmed; blank lines and lines starting with '#' are ignored.
// Order is preserved and duplicates are kept. Returns an error wrapping
// [ErrNoURLs] if the file is missing or contains no URLs.
func ReadURLList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoURLs, err)
	}
	defer func() { _ = f.Close() }()

	urls, err := ParseURLList(f)
	if err != nil {
		return nil, fmt.Errorf("read url list %s: %w", path, err)
	}
	return urls, nil
}

// ParseURLList parses a newline-separated URL list from r.
// See [ReadURLList] for the format.
func ParseURLList(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var urls []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	return urls, nil
}
