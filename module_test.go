package modpmv_test

import (
	"reflect"
	"testing"

	"github.com/modpmv/modpmv"
)

func TestNormalizePadsShortRows(t *testing.T) {
	m := modpmv.Module{
		Channels: 4,
		Patterns: []modpmv.Pattern{{{"SAMPLE:x"}}},
	}
	m.Normalize()
	got := m.Patterns[0][0]
	want := modpmv.Row{"SAMPLE:x", "REST", "REST", "REST"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("normalized row = %v, want %v", got, want)
	}
}

func TestNormalizeTruncatesLongRows(t *testing.T) {
	m := modpmv.Module{
		Channels: 2,
		Patterns: []modpmv.Pattern{{{"SAMPLE:a", "SAMPLE:b", "SAMPLE:c"}}},
	}
	m.Normalize()
	if got := len(m.Patterns[0][0]); got != 2 {
		t.Fatalf("row length after truncation = %d, want 2", got)
	}
}

func TestNormalizeDerivesChannelsFromWidestRow(t *testing.T) {
	m := modpmv.Module{
		Patterns: []modpmv.Pattern{
			{{"SAMPLE:a"}},
			{{"REST", "SAMPLE:b", "REST"}},
		},
	}
	m.Normalize()
	if m.Channels != 3 {
		t.Fatalf("derived channel count = %d, want 3", m.Channels)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate after Normalize: %v", err)
	}
}

func TestNormalizeClampsChannels(t *testing.T) {
	m := modpmv.Module{Channels: 100}
	m.Normalize()
	if m.Channels != modpmv.MaxChannels {
		t.Fatalf("clamped channel count = %d, want %d", m.Channels, modpmv.MaxChannels)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	m := modpmv.Module{
		Channels: 2,
		Patterns: []modpmv.Pattern{{{"SAMPLE:kick", "REST"}, {"REST", "SAMPLE:snare"}}},
	}
	m.Normalize()
	before := m.Copy()
	m.Normalize()
	if !reflect.DeepEqual(m, before) {
		t.Fatalf("second Normalize changed the module:\n got %#v\nwant %#v", m, before)
	}
}

func TestTokenSampleName(t *testing.T) {
	for _, tc := range []struct {
		token modpmv.Token
		name  string
	}{
		{"SAMPLE:kick", "kick"},
		{"sample:Snare", "Snare"},
		{"REST", ""},
		{"SAMPLE:", ""},
		{"garbage", ""},
	} {
		if got := tc.token.SampleName(); got != tc.name {
			t.Errorf("SampleName(%q) = %q, want %q", tc.token, got, tc.name)
		}
	}
}

func TestEffectiveOrderDefaults(t *testing.T) {
	m := modpmv.Module{Patterns: []modpmv.Pattern{{}, {}, {}}}
	if got := m.EffectiveOrder(); !reflect.DeepEqual(got, modpmv.Order{0, 1, 2}) {
		t.Fatalf("default order = %v, want [0 1 2]", got)
	}
	m.Order = modpmv.Order{2, 2, 0}
	if got := m.EffectiveOrder(); !reflect.DeepEqual(got, modpmv.Order{2, 2, 0}) {
		t.Fatalf("explicit order = %v, want [2 2 0]", got)
	}
}
