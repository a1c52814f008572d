package modfile

import (
	"fmt"
	"os"
	"strings"

	"github.com/quasilyte/xm/xmfile"

	"github.com/modpmv/modpmv"
)

// ReadXM decodes a FastTracker II module and maps it onto the normalized
// module shape: instrument names become the sample table, note cells with an
// instrument number become SAMPLE tokens and everything else is a rest. Only
// note-level triggering is modeled; volume columns and effect commands are
// dropped.
func ReadXM(path string) (*modpmv.Module, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open module: %w", err)
	}
	defer f.Close()

	raw, err := xmfile.NewParser(xmfile.ParserConfig{NeedStrings: true}).Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", path, ErrDecode, err)
	}

	m := &modpmv.Module{
		Title:    strings.TrimRight(raw.Name, "\x00 "),
		Channels: int(raw.NumChannels),
		Samples:  map[string]modpmv.SampleDecl{},
	}
	if m.Title == "" {
		m.Title = "Untitled"
	}

	// Instrument numbers in note cells are 1-based.
	names := make([]string, len(raw.Instruments)+1)
	for i, inst := range raw.Instruments {
		name := strings.TrimRight(inst.Name, "\x00 ")
		if name == "" {
			name = fmt.Sprintf("sample%d", i+1)
		}
		names[i+1] = name
		m.Samples[name] = modpmv.SampleDecl{Name: name}
	}

	for _, rawPat := range raw.Patterns {
		pat := make(modpmv.Pattern, 0, len(rawPat.Rows))
		for _, rawRow := range rawPat.Rows {
			row := make(modpmv.Row, 0, len(rawRow.Notes))
			for _, noteIdx := range rawRow.Notes {
				inst := int(raw.Notes[noteIdx].Instrument)
				if inst > 0 && inst < len(names) {
					row = append(row, modpmv.SampleToken(names[inst]))
				} else {
					row = append(row, modpmv.TokenRest)
				}
			}
			pat = append(pat, row)
		}
		m.Patterns = append(m.Patterns, pat)
	}

	for _, idx := range raw.PatternOrder {
		m.Order = append(m.Order, int(idx))
	}
	if n := int(raw.SongLength); n > 0 && n < len(m.Order) {
		m.Order = m.Order[:n]
	}

	m.Normalize()
	return m, nil
}
