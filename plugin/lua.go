package plugin

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/modpmv/modpmv/audio"
	"github.com/modpmv/modpmv/video"
)

// Lua scripting contract: an audio plugin defines
//
//	function process(samples, rate) ... return samples end
//
// where samples is a 1-based array of interleaved stereo floats, and a visual
// plugin defines
//
//	function tint(i, n) ... return r, g, b end
//
// returning per-frame channel multipliers in 0..1 for frame i of n. Each
// invocation runs in a fresh interpreter state, so scripts cannot leak state
// across slices or jobs.

// probeScript loads the script once and reports which entry point it defines.
func probeScript(path string) (string, error) {
	L := lua.NewState()
	defer L.Close()
	if err := L.DoFile(path); err != nil {
		return "", err
	}
	if L.GetGlobal("process") != lua.LNil {
		return "audio", nil
	}
	if L.GetGlobal("tint") != lua.LNil {
		return "transformer", nil
	}
	return "", nil
}

type luaProcessor struct {
	name string
	path string
}

func (p *luaProcessor) Name() string { return p.name }

func (p *luaProcessor) Process(s audio.Segment) (audio.Segment, error) {
	L := lua.NewState()
	defer L.Close()
	if err := L.DoFile(p.path); err != nil {
		return s, fmt.Errorf("lua plugin %s: %w", p.name, err)
	}
	fn := L.GetGlobal("process")
	if fn == lua.LNil {
		return s, fmt.Errorf("lua plugin %s: no process function", p.name)
	}
	in := s.Floats()
	tbl := L.CreateTable(len(in), 0)
	for i, v := range in {
		tbl.RawSetInt(i+1, lua.LNumber(v))
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true},
		tbl, lua.LNumber(audio.SampleRate)); err != nil {
		return s, fmt.Errorf("lua plugin %s: %w", p.name, err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	out, ok := ret.(*lua.LTable)
	if !ok {
		return s, fmt.Errorf("lua plugin %s: process returned %s, want table", p.name, ret.Type())
	}
	data := make([]float32, out.Len())
	for i := range data {
		data[i] = float32(lua.LVAsNumber(out.RawGetInt(i + 1)))
	}
	return audio.FromFloats(data), nil
}

type luaTint struct {
	name string
	path string
}

func (t *luaTint) Name() string { return t.name }

func (t *luaTint) Apply(c *video.Composite) error {
	L := lua.NewState()
	defer L.Close()
	if err := L.DoFile(t.path); err != nil {
		return fmt.Errorf("lua plugin %s: %w", t.name, err)
	}
	fn := L.GetGlobal("tint")
	if fn == lua.LNil {
		return fmt.Errorf("lua plugin %s: no tint function", t.name)
	}
	n := len(c.Frames)
	for i, frame := range c.Frames {
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 3, Protect: true},
			lua.LNumber(i), lua.LNumber(n)); err != nil {
			return fmt.Errorf("lua plugin %s: %w", t.name, err)
		}
		b := clampUnit(float64(lua.LVAsNumber(L.Get(-1))))
		g := clampUnit(float64(lua.LVAsNumber(L.Get(-2))))
		r := clampUnit(float64(lua.LVAsNumber(L.Get(-3))))
		L.Pop(3)
		for off := 0; off < len(frame.Pix); off += 4 {
			frame.Pix[off] = uint8(float64(frame.Pix[off]) * r)
			frame.Pix[off+1] = uint8(float64(frame.Pix[off+1]) * g)
			frame.Pix[off+2] = uint8(float64(frame.Pix[off+2]) * b)
		}
	}
	return nil
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
