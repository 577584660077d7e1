// Package report prints a human readable summary of a preset: the pattern,
// pitch and timing of every lane and, for a rendering, the produced notes.
package report

import (
	"embed"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/ableplugs/beat"
	"github.com/ableplugs/beat/params"
	"github.com/ableplugs/beat/render"
)

//go:embed templates/*.txt
var templates embed.FS

type (
	Reporter struct {
		Template *template.Template
	}

	data struct {
		Title     string
		Selected  int
		Muted     bool
		Lanes     []laneData
		Rendering *render.Rendering
	}

	laneData struct {
		beat.LaneParams
		Number    int
		NoteName  string
		Pattern   string
		StepTicks int
		Flags     []string
		NoteOns   int
		SpacingMs float64
	}
)

// New returns a reporter using the built-in templates.
func New() (*Reporter, error) {
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseFS(templates, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf(`could not parse report templates: %v`, err)
	}
	return &Reporter{Template: tmpl}, nil
}

// NewFromTemplates returns a reporter using the templates in the given
// directory; the directory must define "report.txt".
func NewFromTemplates(templateDirectory string) (*Reporter, error) {
	globPtrn := filepath.Join(templateDirectory, "*.*")
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).ParseGlob(globPtrn)
	if err != nil {
		return nil, fmt.Errorf(`could not create template based on directory "%v": %v`, templateDirectory, err)
	}
	return &Reporter{Template: tmpl}, nil
}

// Write writes the report of the preset. r may be nil.
func (rep *Reporter) Write(w io.Writer, title string, preset params.Preset, r *render.Rendering) error {
	d := collect(preset, r)
	d.Title = title
	if err := rep.Template.ExecuteTemplate(w, "report.txt", d); err != nil {
		return fmt.Errorf(`could not execute template "report.txt": %v`, err)
	}
	return nil
}

func collect(preset params.Preset, r *render.Rendering) *data {
	e := beat.NewEngine()
	b := params.NewBank()
	for _, c := range preset.Changes() {
		b.Apply(e, c)
	}
	e.Locate(-1) // builds the patterns
	d := &data{Selected: e.SelectedLane(), Muted: e.Muted(), Rendering: r}
	var stats render.Stats
	if r != nil {
		stats = r.Stats()
	}
	for i := 0; i < beat.NumLanes; i++ {
		l := e.Lane(i)
		p := l.Params()
		ld := laneData{
			LaneParams: p,
			Number:     i + 1,
			NoteName:   beat.NoteNameOf(l.Note()),
			StepTicks:  l.StepTicks(),
		}
		if p.Pulses <= p.Loop {
			ld.Pattern = patternString(l.Pattern())
		} else {
			ld.Flags = append(ld.Flags, "more beats than steps")
		}
		if p.Velocity <= 0 {
			ld.Flags = append(ld.Flags, "silent")
		}
		if e.LaneMuted(i) {
			ld.Flags = append(ld.Flags, "muted")
		}
		if e.LaneSoloed(i) {
			ld.Flags = append(ld.Flags, "solo")
		}
		if r != nil {
			ld.NoteOns = stats.Lanes[i].NoteOns
			ld.SpacingMs = float64(stats.Lanes[i].MeanSpacing) / r.SampleRate * 1000
		}
		d.Lanes = append(d.Lanes, ld)
	}
	return d
}

func patternString(p []bool) string {
	var sb strings.Builder
	for _, v := range p {
		if v {
			sb.WriteByte('x')
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
