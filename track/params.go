/*------------------------------------------------------------------------------
* params.go : loop-parameter configuration grammar (§4.4)
*
*          Copyright (C) 2023-2026 by feng xuebin, All rights reserved.
*
* the parenthesized tuple grammar below is unique to this setting, but
* the "one text blob owns one settings key, validated before it is
* allowed to replace the live value" discipline follows options.go's
* Opt table (SearchOpt/Str2Opt) generalized from flat key=value text.
 */
package track

import (
	"fmt"
	"strconv"
	"strings"
)

/* LoopParams is one stage's worth of aided-loop coefficients. */
type LoopParams struct {
	CoherentMs      int
	CodeBW          float64
	CodeZeta        float64
	CodeK           float64
	CarrToCode      float64
	CarrBW          float64
	CarrZeta        float64
	CarrK           float64
	CarrFLLAidGain  float64
}

/* LoopParamsPair is the stage-0/stage-1 configuration pair. */
type LoopParamsPair [2]LoopParams

/* DefaultLoopParamsText is the settings-surface default (§6). */
const DefaultLoopParamsText = "(1 ms, (1, 0.7, 1, 1540), (10, 0.7, 1, 5)), (5 ms, (1, 0.7, 1, 1540), (50, 0.7, 1, 0))"

/* ParseLoopParams parses the track.loop_params grammar. The parse is
 * atomic: an error leaves the caller free to not replace the live
 * value at all (the parser never mutates partial state). */
func ParseLoopParams(text string) (LoopParamsPair, error) {
	var pair LoopParamsPair

	stages := splitTopLevel(text)
	if len(stages) != 1 && len(stages) != 2 {
		return pair, fmt.Errorf("loop_params: expected 1 or 2 stages, got %d", len(stages))
	}

	p0, err := parseStage(stages[0])
	if err != nil {
		return pair, fmt.Errorf("loop_params: stage 0: %w", err)
	}
	if p0.CoherentMs != 1 {
		return pair, fmt.Errorf("loop_params: stage 0 coherent_ms must be 1, got %d", p0.CoherentMs)
	}
	pair[0] = p0

	if len(stages) == 2 {
		p1, err := parseStage(stages[1])
		if err != nil {
			return pair, fmt.Errorf("loop_params: stage 1: %w", err)
		}
		pair[1] = p1
	} else {
		pair[1] = p0
	}
	return pair, nil
}

/* parseStage parses one "( <coherent_ms> ms , (code...) , (carr...) )"
 * group. */
func parseStage(s string) (LoopParams, error) {
	var p LoopParams

	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")

	fields := splitTopLevel(s)
	if len(fields) != 3 {
		return p, fmt.Errorf("expected 3 fields, got %d: %q", len(fields), s)
	}

	msField := strings.TrimSpace(fields[0])
	msField = strings.TrimSuffix(msField, "ms")
	msField = strings.TrimSpace(msField)
	ms, err := strconv.Atoi(msField)
	if err != nil {
		return p, fmt.Errorf("bad coherent_ms %q: %w", fields[0], err)
	}
	if !isValidIntMs(ms) {
		return p, fmt.Errorf("coherent_ms %d must be one of %v", ms, validIntMs)
	}
	p.CoherentMs = ms

	code, err := parseTuple(fields[1], 4)
	if err != nil {
		return p, fmt.Errorf("code tuple: %w", err)
	}
	p.CodeBW, p.CodeZeta, p.CodeK, p.CarrToCode = code[0], code[1], code[2], code[3]

	carr, err := parseTuple(fields[2], 4)
	if err != nil {
		return p, fmt.Errorf("carrier tuple: %w", err)
	}
	p.CarrBW, p.CarrZeta, p.CarrK, p.CarrFLLAidGain = carr[0], carr[1], carr[2], carr[3]

	return p, nil
}

func parseTuple(s string, n int) ([]float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "(")
	s = strings.TrimSuffix(s, ")")
	parts := splitTopLevel(s)
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d values, got %d: %q", n, len(parts), s)
	}
	out := make([]float64, n)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("bad value %q: %w", part, err)
		}
		out[i] = v
	}
	return out, nil
}

/* splitTopLevel splits on commas that are not nested inside
 * parentheses, e.g. "(1 ms, (a,b)), (2 ms, (c,d))" -> two stage
 * strings. */
func splitTopLevel(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}

/* String serializes a LoopParamsPair back to the grammar; if both
 * stages are identical it emits the single-stage form so that
 * ParseLoopParams(pair.String()) round-trips through parse and
 * produces params[1] == params[0] either way. */
func (p LoopParamsPair) String() string {
	if p[0] == p[1] {
		return stageString(p[0])
	}
	return stageString(p[0]) + ", " + stageString(p[1])
}

func stageString(s LoopParams) string {
	return fmt.Sprintf("(%d ms, (%g, %g, %g, %g), (%g, %g, %g, %g))",
		s.CoherentMs, s.CodeBW, s.CodeZeta, s.CodeK, s.CarrToCode,
		s.CarrBW, s.CarrZeta, s.CarrK, s.CarrFLLAidGain)
}
