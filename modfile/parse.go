package modfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/modpmv/modpmv"
)

// ReadText parses a text-format module file. Relative explicit sample paths
// are resolved against the directory of the module file.
func ReadText(path string) (*modpmv.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open module: %w", err)
	}
	defer f.Close()
	m, err := ParseText(f, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// ParseText parses the text module format:
//
//	TITLE: My Track
//	SAMPLE: name,path=assets/audio_samples/name.wav,key=value
//	PATTERN:
//	  SAMPLE:name SAMPLE:other REST
//	  SAMPLE:kick SAMPLE:snare
//	ORDER: 0,1,0
//
// Empty lines and lines starting with # are skipped. Section keywords are
// case-insensitive. Pattern rows split on commas and whitespace. dir is the
// base for relative explicit sample paths; pass "" to leave them untouched.
// The returned module is normalized: the channel count is the width of the
// widest row and every row is padded to it.
func ParseText(r io.Reader, dir string) (*modpmv.Module, error) {
	m := &modpmv.Module{
		Title:   "Untitled",
		Samples: map[string]modpmv.SampleDecl{},
	}
	var current modpmv.Pattern
	flush := func() {
		if len(current) > 0 {
			m.Patterns = append(m.Patterns, current)
			current = nil
		}
	}
	inPattern := false

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		upper := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(upper, "TITLE:"):
			m.Title = strings.TrimSpace(line[len("TITLE:"):])
		case strings.HasPrefix(upper, "SAMPLE:"):
			decl := parseSampleDecl(line[len("SAMPLE:"):], dir)
			if decl.Name != "" {
				m.Samples[decl.Name] = decl
			}
		case strings.HasPrefix(upper, "PATTERN:"):
			flush()
			inPattern = true
		case strings.HasPrefix(upper, "ORDER:"):
			m.Order = parseOrder(line[len("ORDER:"):])
			inPattern = false
		case inPattern:
			row := parseRow(line)
			if len(row) > 0 {
				current = append(current, row)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read module text: %w", err)
	}
	flush()
	m.Normalize()
	return m, nil
}

// parseSampleDecl parses "name,path=...,key=value". The first comma field is
// the sample name; path= sets the explicit file; any other key=value lands in
// the metadata map.
func parseSampleDecl(s, dir string) modpmv.SampleDecl {
	var decl modpmv.SampleDecl
	for i, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if decl.Name == "" && i == 0 {
			decl.Name = part
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if key == "path" {
			if value != "" && dir != "" && !filepath.IsAbs(value) {
				value = filepath.Clean(filepath.Join(dir, value))
			}
			decl.File = value
			continue
		}
		if decl.Meta == nil {
			decl.Meta = map[string]string{}
		}
		decl.Meta[key] = value
	}
	return decl
}

func parseOrder(s string) modpmv.Order {
	var order modpmv.Order
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if n, err := strconv.Atoi(field); err == nil && n >= 0 {
			order = append(order, n)
		}
	}
	return order
}

func parseRow(line string) modpmv.Row {
	var row modpmv.Row
	for _, tok := range strings.Fields(strings.ReplaceAll(line, ",", " ")) {
		row = append(row, modpmv.Token(tok))
	}
	return row
}
