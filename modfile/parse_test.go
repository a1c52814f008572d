package modfile_test

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/modpmv/modpmv"
	"github.com/modpmv/modpmv/modfile"
)

const moduleText = `# demo module
TITLE: Night Drive
SAMPLE: kick,path=samples/kick.wav
SAMPLE: snare,gain=0.8
PATTERN:
  SAMPLE:kick REST
  REST, SAMPLE:snare
PATTERN:
  SAMPLE:kick SAMPLE:snare
ORDER: 0,1,0
`

func TestParseText(t *testing.T) {
	m, err := modfile.ParseText(strings.NewReader(moduleText), "/proj")
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	if m.Title != "Night Drive" {
		t.Errorf("title = %q, want Night Drive", m.Title)
	}
	if len(m.Patterns) != 2 {
		t.Fatalf("pattern count = %d, want 2", len(m.Patterns))
	}
	if m.Channels != 2 {
		t.Fatalf("channels = %d, want 2", m.Channels)
	}
	if !reflect.DeepEqual(m.Order, modpmv.Order{0, 1, 0}) {
		t.Errorf("order = %v, want [0 1 0]", m.Order)
	}
	kick, ok := m.Samples["kick"]
	if !ok {
		t.Fatalf("sample table is missing kick: %v", m.Samples)
	}
	if want := filepath.Clean("/proj/samples/kick.wav"); kick.File != want {
		t.Errorf("explicit path = %q, want %q (relative to the module dir)", kick.File, want)
	}
	if got := m.Samples["snare"].Meta["gain"]; got != "0.8" {
		t.Errorf("snare meta gain = %q, want 0.8", got)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("parsed module failed validation: %v", err)
	}
}

func TestParseTextRowNormalization(t *testing.T) {
	m, err := modfile.ParseText(strings.NewReader("PATTERN:\nSAMPLE:a\nSAMPLE:b REST SAMPLE:c\n"), "")
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	if m.Channels != 3 {
		t.Fatalf("channels = %d, want 3", m.Channels)
	}
	want := modpmv.Row{"SAMPLE:a", "REST", "REST"}
	if !reflect.DeepEqual(m.Patterns[0][0], want) {
		t.Fatalf("first row = %v, want %v", m.Patterns[0][0], want)
	}
}

func TestParseTextEmpty(t *testing.T) {
	m, err := modfile.ParseText(strings.NewReader("# nothing here\n"), "")
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	if len(m.Patterns) != 0 {
		t.Fatalf("pattern count = %d, want 0", len(m.Patterns))
	}
	if m.Title != "Untitled" {
		t.Fatalf("title = %q, want Untitled", m.Title)
	}
}

func TestParseTextIgnoresNegativeOrderEntries(t *testing.T) {
	m, err := modfile.ParseText(strings.NewReader("ORDER: 0,-1,x,2\n"), "")
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	if !reflect.DeepEqual(m.Order, modpmv.Order{0, 2}) {
		t.Fatalf("order = %v, want [0 2]", m.Order)
	}
}

func TestReadRejectsUndecodableFormats(t *testing.T) {
	_, err := modfile.Read("song.mod")
	if !errors.Is(err, modfile.ErrNoDecoder) {
		t.Fatalf("Read(.mod) error = %v, want ErrNoDecoder", err)
	}
}
