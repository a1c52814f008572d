package modpmv

import (
	"errors"
	"fmt"
	"strings"
)

// MaxChannels is the largest number of channels a module can carry; rows of
// wider modules are truncated when normalizing.
const MaxChannels = 32

type (
	// Token is one cell of a pattern row: either a rest or a trigger of a
	// named sample. Anything that is not a well-formed sample trigger counts
	// as a rest.
	Token string

	// Row is one time step across all channels. After Normalize, every row of
	// a module has exactly Module.Channels tokens.
	Row []Token

	// Pattern is an ordered list of rows.
	Pattern []Row

	// Order is the pattern play order, in practice just a slice of pattern
	// indices. Indices may repeat and may point outside the pattern list;
	// out-of-range entries are skipped when walking the module.
	Order []int

	// SampleDecl is one entry of the module's sample table. File, when
	// non-empty, is an explicit path to the asset that should be used for
	// this sample; it takes priority over any fuzzy folder search. Meta
	// carries free-form key=value annotations from the module file.
	SampleDecl struct {
		Name string
		File string
		Meta map[string]string
	}

	// Module is the normalized in-memory representation of a tracker score:
	// a title, a sample table, patterns, a play order and a fixed channel
	// count. A Module is treated as read-only once parsed & normalized.
	Module struct {
		Title    string
		Channels int
		Samples  map[string]SampleDecl
		Patterns []Pattern
		Order    Order
	}
)

// TokenRest is the canonical rest token.
const TokenRest Token = "REST"

const samplePrefix = "SAMPLE:"

// SampleToken builds the trigger token for the given sample name.
func SampleToken(name string) Token {
	return Token(samplePrefix + name)
}

// IsSample reports whether the token triggers a sample. The prefix check is
// case-insensitive, like the rest of the module text format.
func (t Token) IsSample() bool {
	return len(t) > len(samplePrefix) &&
		strings.EqualFold(string(t[:len(samplePrefix)]), samplePrefix)
}

// SampleName returns the sample name of a trigger token, or "" for rests and
// malformed tokens.
func (t Token) SampleName() string {
	if !t.IsSample() {
		return ""
	}
	return string(t[len(samplePrefix):])
}

// Get returns the token at index; or REST if the index is out of range.
func (r Row) Get(index int) Token {
	if index < 0 || index >= len(r) {
		return TokenRest
	}
	return r[index]
}

// Copy makes a deep copy of a Pattern.
func (p Pattern) Copy() Pattern {
	rows := make(Pattern, len(p))
	for i, row := range p {
		newRow := make(Row, len(row))
		copy(newRow, row)
		rows[i] = newRow
	}
	return rows
}

// Copy makes a deep copy of a Module.
func (m *Module) Copy() Module {
	samples := make(map[string]SampleDecl, len(m.Samples))
	for k, v := range m.Samples {
		meta := make(map[string]string, len(v.Meta))
		for mk, mv := range v.Meta {
			meta[mk] = mv
		}
		if len(meta) == 0 {
			meta = nil
		}
		samples[k] = SampleDecl{Name: v.Name, File: v.File, Meta: meta}
	}
	patterns := make([]Pattern, len(m.Patterns))
	for i, p := range m.Patterns {
		patterns[i] = p.Copy()
	}
	order := make(Order, len(m.Order))
	copy(order, m.Order)
	return Module{Title: m.Title, Channels: m.Channels, Samples: samples, Patterns: patterns, Order: order}
}

// Normalize brings a freshly parsed module into the canonical shape: the
// channel count is clamped to [1, MaxChannels] (a zero count is derived from
// the widest row) and every row is right-padded with rests or truncated so
// that it has exactly Channels tokens. Normalizing an already normalized
// module is a no-op. This happens once, at parse time; the renderers may
// assume fixed-width rows.
func (m *Module) Normalize() {
	if m.Channels <= 0 {
		for _, pat := range m.Patterns {
			for _, row := range pat {
				if len(row) > m.Channels {
					m.Channels = len(row)
				}
			}
		}
	}
	if m.Channels <= 0 {
		m.Channels = 1
	}
	if m.Channels > MaxChannels {
		m.Channels = MaxChannels
	}
	for _, pat := range m.Patterns {
		for i, row := range pat {
			switch {
			case len(row) < m.Channels:
				padded := make(Row, m.Channels)
				copy(padded, row)
				for j := len(row); j < m.Channels; j++ {
					padded[j] = TokenRest
				}
				pat[i] = padded
			case len(row) > m.Channels:
				pat[i] = row[:m.Channels]
			}
		}
	}
	if m.Samples == nil {
		m.Samples = map[string]SampleDecl{}
	}
}

// EffectiveOrder returns the play order that the renderers walk: the module's
// own order if it has one, otherwise every pattern once, in index order.
func (m *Module) EffectiveOrder() Order {
	if len(m.Order) > 0 {
		return m.Order
	}
	order := make(Order, len(m.Patterns))
	for i := range order {
		order[i] = i
	}
	return order
}

// TotalRows counts the rows the effective order walks over, skipping
// out-of-range pattern indices the same way the timeline walk does.
func (m *Module) TotalRows() int {
	rows := 0
	for _, idx := range m.EffectiveOrder() {
		if idx < 0 || idx >= len(m.Patterns) {
			continue
		}
		rows += len(m.Patterns[idx])
	}
	return rows
}

// Validate checks that the module is in the normalized shape the renderers
// require. Not called on the render path; mostly a test and debugging aid.
func (m *Module) Validate() error {
	if m.Channels < 1 || m.Channels > MaxChannels {
		return fmt.Errorf("channel count %d outside [1, %d]", m.Channels, MaxChannels)
	}
	for i, pat := range m.Patterns {
		for j, row := range pat {
			if len(row) != m.Channels {
				return fmt.Errorf("pattern %d row %d has %d tokens, want %d", i, j, len(row), m.Channels)
			}
		}
	}
	if m.Samples == nil {
		return errors.New("sample table is nil; module was not normalized")
	}
	return nil
}
