// Package param holds parameter metadata and the atomic value slots units
// keep their parameters in.
package param

import (
	"math"
	"strings"
)

// ID identifies a parameter within one unit. Zero is never a valid ID.
type ID uint32

// Hints used by Info.Hints. Hints are colon separated and always carry
// leading and trailing colons, e.g. ":r:w:G:bidir:".
const (
	HintStandard = "r:w:G:"
	HintBidir    = "bidir"
	HintChoice   = "choice"
	HintToggle   = "toggle"
)

// Choice is one entry of an enumerated parameter.
type Choice struct {
	Ident   string
	Label   string
	Subject string
}

// Choices builds choice entries from labels.
func Choices(labels ...string) []Choice {
	c := make([]Choice, 0, len(labels))
	for _, l := range labels {
		c = append(c, Choice{Ident: Canonify(l), Label: l})
	}
	return c
}

// Info is the immutable description of a parameter.
// A parameter is either ranged (Min, Max, Step) or enumerated (Choices).
type Info struct {
	ID          ID
	Order       int
	Ident       string
	Label       string
	Nick        string
	Unit        string
	Hints       string
	Group       string
	Blurb       string
	Description string

	Min, Max, Step float64
	Choices        []Choice
}

// Range returns a ranged Info template. A zero step disables quantization.
func Range(label, nick string, min, max, step float64, unit string) Info {
	return Info{
		Ident: Canonify(label),
		Label: label,
		Nick:  nick,
		Unit:  unit,
		Hints: BuildHints("", min, max),
		Min:   min,
		Max:   max,
		Step:  step,
	}
}

// Enum returns an enumerated Info template. Values are 0 to len(choices)-1.
func Enum(label, nick string, choices []Choice) Info {
	return Info{
		Ident:   Canonify(label),
		Label:   label,
		Nick:    nick,
		Hints:   BuildHints("", 0, float64(len(choices)), HintChoice),
		Choices: choices,
	}
}

// Toggle returns a boolean Info template: 0 is off, 1 is on.
func Toggle(label, nick string) Info {
	return Info{
		Ident:   Canonify(label),
		Label:   label,
		Nick:    nick,
		Hints:   BuildHints("", 0, 1, HintToggle),
		Choices: Choices("Off", "On"),
	}
}

// IsChoice reports whether the parameter is enumerated.
func (i *Info) IsChoice() bool {
	return len(i.Choices) > 0
}

// IsValid reports whether the parameter has a usable range.
func (i *Info) IsValid() bool {
	return i.IsChoice() || i.Max >= i.Min
}

// MinMax returns the value range. Invalid infos return NaNs.
func (i *Info) MinMax() (float64, float64) {
	switch {
	case i.IsChoice():
		return 0, float64(len(i.Choices) - 1)
	case i.Max >= i.Min:
		return i.Min, i.Max
	}
	return math.NaN(), math.NaN()
}

// Stepping returns the quantization step or 0 if the value is continuous.
func (i *Info) Stepping() float64 {
	if i.IsChoice() {
		return 1
	}
	return i.Step
}

// Constrain clamps v into the parameter range and quantizes it if stepped.
// Half-way cases are rounded toward the lower bound.
func (i *Info) Constrain(v float64) float64 {
	if !i.IsValid() {
		return v
	}
	min, max := i.MinMax()
	v = clamp(v, min, max)
	step := i.Stepping()
	if step <= 0 {
		return v
	}
	v = step * math.Ceil((v-min)/step-0.5)
	return clamp(min+v, min, max)
}

// Normalize maps v from the parameter range onto [0, 1].
func (i *Info) Normalize(v float64) float64 {
	min, max := i.MinMax()
	if !(max > min) {
		return 0
	}
	return clamp((v-min)/(max-min), 0, 1)
}

// Denormalize maps n from [0, 1] onto the parameter range and constrains
// the result.
func (i *Info) Denormalize(n float64) float64 {
	min, max := i.MinMax()
	if math.IsNaN(min) {
		return min
	}
	return i.Constrain(min + clamp(n, 0, 1)*(max-min))
}

// ChoiceIndex returns the choice selected by value v or -1.
func (i *Info) ChoiceIndex(v float64) int {
	if !i.IsChoice() {
		return -1
	}
	return int(i.Constrain(v))
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Canonify lowercases s and replaces every character outside [a-z0-9_-]
// with a hyphen.
func Canonify(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		}
		return '-'
	}, strings.ToLower(s))
}

// BuildHints normalizes hints to the colon delimited form and appends the
// extra hints and "bidir" for ranges symmetric around zero.
func BuildHints(hints string, min, max float64, extra ...string) string {
	if hints == "" {
		hints = HintStandard
	}
	if !strings.HasSuffix(hints, ":") {
		hints += ":"
	}
	if !strings.HasPrefix(hints, ":") {
		hints = ":" + hints
	}
	for _, e := range extra {
		if e != "" && !HasHint(hints, e) {
			hints += e + ":"
		}
	}
	if max > 0 && max == -min {
		hints += HintBidir + ":"
	}
	return hints
}

// HasHint reports whether hint is part of hints.
func HasHint(hints, hint string) bool {
	return strings.Contains(hints, ":"+hint+":")
}
