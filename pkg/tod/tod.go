// Package tod implements the time-of-day XML schema converter (spec.md
// §4.13, new, supplemented from original_source): a narrow, format-specific
// batch converter between the legacy CryEngine TimeOfDay XML variant and
// the newer CE5 environment-preset + preset-list pair. Grounded on
// original_source/app/tasks/tod.py's TimeOfDayConverter. Performs
// structural (element-adding) conversion through encoding/xml directly,
// unlike pkg/handler's deliberately byte-preserving regex substitution —
// this is not part of the reference-integrity core.
//
// The legacy variable table (original_source's app/data/ce_params.py,
// LEGACY_MAP and ORDERED_PARAMS) was not part of the retrieved source set;
// legacyParams below carries a representative subset of the well-known
// CryEngine TimeOfDay variables (sun/fog/sky color and intensity) covering
// the common case, documented as incomplete in DESIGN.md rather than
// invented wholesale.
package tod

import (
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	timeScale                  = 144000.0
	fallbackSunIntensityScalar = 50000.0
)

// paramType mirrors the CE5 var element's type attribute.
type paramType string

const (
	typeFloat paramType = "TYPE_FLOAT"
	typeColor paramType = "TYPE_COLOR"
)

type paramSpec struct {
	id         string
	kind       paramType
	min, max   float64
	legacyName string // key into the legacy <Variable Name="..."> table
}

// legacyParams is the representative CE5 <-> legacy variable mapping; see
// the package doc comment.
var legacyParams = []paramSpec{
	{id: "PARAM_SUN_COLOR", kind: typeColor, min: 0, max: 100, legacyName: "Sun color"},
	{id: "PARAM_SUN_COLOR_MULTIPLIER", kind: typeFloat, min: 0, max: 100, legacyName: "Sun color multiplier"},
	{id: "PARAM_SUN_INTENSITY", kind: typeFloat, min: 0, max: 550000, legacyName: ""},
	{id: "PARAM_FOG_COLOR", kind: typeColor, min: 0, max: 100, legacyName: "Fog color"},
	{id: "PARAM_FOG_COLOR_MULTIPLIER", kind: typeFloat, min: 0, max: 100, legacyName: "Fog color multiplier"},
	{id: "PARAM_SKY_BRIGHTENING", kind: typeFloat, min: 0, max: 100, legacyName: "Sky brightening"},
	{id: "PARAM_HDR_DYNAMIC_POWER_FACTOR", kind: typeFloat, min: 0, max: 100, legacyName: "HDR dynamic power factor"},
}

// Key is one spline control point. Value holds 1 component (float params)
// or 3 (color params).
type Key struct {
	Time  float64
	Value []float64
	Flags int
}

// Spline is a sorted set of Keys with wrap-around (0..1 normalized time)
// linear interpolation, mirroring original_source's Spline.evaluate.
type Spline struct {
	Keys []Key
}

func (s *Spline) AddKey(time float64, value []float64, flags int) {
	s.Keys = append(s.Keys, Key{Time: time, Value: value, Flags: flags})
	sort.Slice(s.Keys, func(i, j int) bool { return s.Keys[i].Time < s.Keys[j].Time })
}

// Evaluate returns the interpolated value at normalized time t (wrapped
// into [0,1)).
func (s *Spline) Evaluate(t float64) []float64 {
	if len(s.Keys) == 0 {
		return []float64{0}
	}
	t = math.Mod(t, 1.0)
	if t < 0 {
		t += 1.0
	}
	if len(s.Keys) == 1 {
		return s.Keys[0].Value
	}

	prev := s.Keys[len(s.Keys)-1]
	next := s.Keys[0]
	if t >= s.Keys[0].Time && t < s.Keys[len(s.Keys)-1].Time {
		for i := 0; i < len(s.Keys)-1; i++ {
			if t >= s.Keys[i].Time && t < s.Keys[i+1].Time {
				prev, next = s.Keys[i], s.Keys[i+1]
				break
			}
		}
	}

	prevTime, nextTime := prev.Time, next.Time
	tAdj := t
	if nextTime < prevTime {
		nextTime += 1.0
	}
	if t < prevTime {
		tAdj += 1.0
	}
	diff := nextTime - prevTime
	ratio := 0.0
	if diff > 1e-6 {
		ratio = (tAdj - prevTime) / diff
	}

	n := len(prev.Value)
	if len(next.Value) < n {
		n = len(next.Value)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = prev.Value[i] + (next.Value[i]-prev.Value[i])*ratio
	}
	return out
}

var colorKeyRe = regexp.MustCompile(`([\d.]+):\(([\d.]+):([\d.]+):([\d.]+)\):?(\d*)`)

func parseFloatSpline(keysStr string) *Spline {
	s := &Spline{}
	keysStr = strings.Trim(strings.TrimSpace(keysStr), ",")
	if keysStr == "" {
		return s
	}
	for _, item := range strings.Split(keysStr, ",") {
		parts := strings.Split(item, ":")
		if len(parts) < 2 {
			continue
		}
		t, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			continue
		}
		v, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			continue
		}
		flags := 0
		if len(parts) > 2 {
			if f, err := strconv.Atoi(parts[2]); err == nil {
				flags = f
			}
		}
		s.AddKey(t, []float64{v}, flags)
	}
	return s
}

func parseColorSpline(keysStr string) *Spline {
	s := &Spline{}
	for _, m := range colorKeyRe.FindAllStringSubmatch(keysStr, -1) {
		t, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		r, _ := strconv.ParseFloat(m[2], 64)
		g, _ := strconv.ParseFloat(m[3], 64)
		b, _ := strconv.ParseFloat(m[4], 64)
		flags := 0
		if m[5] != "" {
			if f, err := strconv.Atoi(m[5]); err == nil {
				flags = f
			}
		}
		s.AddKey(t, []float64{r, g, b}, flags)
	}
	return s
}

func formatCE5Key(timeNorm float64, value float64, flags int) string {
	tick := int64(math.Round(timeNorm * timeScale))
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	valStr := strconv.FormatFloat(value, 'f', 6, 64)
	valStr = strings.TrimRight(valStr, "0")
	valStr = strings.TrimRight(valStr, ".")
	if valStr == "" || valStr == "-" {
		valStr = "0"
	}
	return fmt.Sprintf("%d:%s:0:0:0:0:1:1:0", tick, valStr)
}

func calculateFallbackSun(splines map[string]*Spline) *Spline {
	sunColor := splines["Sun color"]
	if sunColor == nil || len(sunColor.Keys) == 0 {
		sunColor = &Spline{}
		sunColor.AddKey(0, []float64{1, 1, 1}, 0)
	}
	sunMult := splines["Sun color multiplier"]
	if sunMult == nil || len(sunMult.Keys) == 0 {
		sunMult = &Spline{}
		sunMult.AddKey(0, []float64{1}, 0)
	}

	timeSet := map[float64]struct{}{}
	for _, k := range sunColor.Keys {
		timeSet[k.Time] = struct{}{}
	}
	for _, k := range sunMult.Keys {
		timeSet[k.Time] = struct{}{}
	}

	var times []float64
	for t := range timeSet {
		times = append(times, t)
	}
	if len(times) == 0 {
		times = []float64{0, 1}
	}
	sort.Float64s(times)

	out := &Spline{}
	for _, t := range times {
		c := sunColor.Evaluate(t)
		m := sunMult.Evaluate(t)[0]
		lum := c[0]*0.2126 + c[1]*0.7152 + c[2]*0.0722
		final := math.Min(m*lum*fallbackSunIntensityScalar, 550000.0)
		out.AddKey(t, []float64{final}, 1)
	}
	return out
}

// legacyVariable is one <Variable Name="..."><Spline Keys="..."/></Variable>
// element, wherever it appears in the document.
type legacyVariable struct {
	Name   string `xml:"Name,attr"`
	Spline struct {
		Keys string `xml:"Keys,attr"`
	} `xml:"Spline"`
}

type legacyRoot struct {
	Variables []legacyVariable
}

// envVar is one <var> element of the CE5 EnvironmentPreset.
type envVar struct {
	XMLName  xml.Name `xml:"var"`
	ID       string   `xml:"id,attr"`
	Type     string   `xml:"type,attr"`
	MinValue string   `xml:"minValue,attr"`
	MaxValue string   `xml:"maxValue,attr"`
	Spline0  splineEl `xml:"spline0"`
	Spline1  splineEl `xml:"spline1"`
	Spline2  splineEl `xml:"spline2"`
}

type splineEl struct {
	Keys string `xml:"keys,attr"`
}

type constants struct {
	XMLName xml.Name `xml:"Constants"`
	Sun     struct {
		Latitude        string `xml:"Latitude,attr"`
		Longitude       string `xml:"Longitude,attr"`
		SunLinkedToTOD  string `xml:"SunLinkedToTOD,attr"`
	} `xml:"Sun"`
	Moon struct {
		Latitude  string `xml:"Latitude,attr"`
		Longitude string `xml:"Longitude,attr"`
		Size      string `xml:"Size,attr"`
		Texture   string `xml:"Texture,attr"`
	} `xml:"Moon"`
	Sky struct {
		MaterialDef string `xml:"MaterialDef,attr"`
		MaterialLow string `xml:"MaterialLow,attr"`
	} `xml:"Sky"`
}

type environmentPreset struct {
	XMLName       xml.Name  `xml:"EnvironmentPreset"`
	CryXmlVersion string    `xml:"CryXmlVersion,attr"`
	Version       string    `xml:"version,attr"`
	Vars          []envVar  `xml:"var"`
	Constants     constants `xml:"Constants"`
}

type preset struct {
	XMLName xml.Name `xml:"Preset"`
	Name    string   `xml:"Name,attr"`
	Default string   `xml:"Default,attr"`
}

type presets struct {
	XMLName xml.Name `xml:"Presets"`
	Preset  preset   `xml:"Preset"`
}

type timeOfDay struct {
	XMLName       xml.Name `xml:"TimeOfDay"`
	Time          string   `xml:"Time,attr"`
	TimeStart     string   `xml:"TimeStart,attr"`
	TimeEnd       string   `xml:"TimeEnd,attr"`
	TimeAnimSpeed string   `xml:"TimeAnimSpeed,attr"`
	Presets       presets  `xml:"Presets"`
}

// Result holds the two output file paths and their rendered content.
type Result struct {
	EnvPath   string
	EnvXML    []byte
	PresetPath string
	PresetXML  []byte
}

// Convert reads a legacy TimeOfDay XML file and produces a CE5 environment
// preset (.env) plus a preset-list XML (<stem>_ce5.xml), matching
// original_source's TimeOfDayConverter.run output pair.
func Convert(inputPath string) (Result, error) {
	content, err := os.ReadFile(inputPath)
	if err != nil {
		return Result{}, err
	}

	root, err := parseLegacy(content)
	if err != nil {
		return Result{}, fmt.Errorf("parse legacy time-of-day xml: %w", err)
	}

	splines := make(map[string]*Spline, len(root.Variables))
	for _, v := range root.Variables {
		if v.Name == "" {
			continue
		}
		if strings.Contains(v.Spline.Keys, "(") {
			splines[v.Name] = parseColorSpline(v.Spline.Keys)
		} else {
			splines[v.Name] = parseFloatSpline(v.Spline.Keys)
		}
	}
	if _, ok := splines["Sun intensity"]; !ok {
		splines["Sun intensity"] = calculateFallbackSun(splines)
	}

	env := environmentPreset{CryXmlVersion: "2", Version: "4"}
	for _, spec := range legacyParams {
		var spline *Spline
		if spec.id == "PARAM_SUN_INTENSITY" {
			spline = splines["Sun intensity"]
		} else if spec.legacyName != "" {
			spline = splines[spec.legacyName]
		}

		v := envVar{
			ID:       spec.id,
			Type:     string(spec.kind),
			MinValue: formatNum(spec.min),
			MaxValue: formatNum(spec.max),
		}

		var keys0, keys1, keys2 []string
		if spline != nil {
			for _, k := range spline.Keys {
				if spec.kind == typeColor {
					val := k.Value
					if len(val) < 3 {
						val = []float64{val[0], val[0], val[0]}
					}
					keys0 = append(keys0, formatCE5Key(k.Time, clamp(val[0], spec.min, spec.max), k.Flags))
					keys1 = append(keys1, formatCE5Key(k.Time, clamp(val[1], spec.min, spec.max), k.Flags))
					keys2 = append(keys2, formatCE5Key(k.Time, clamp(val[2], spec.min, spec.max), k.Flags))
				} else {
					keys0 = append(keys0, formatCE5Key(k.Time, k.Value[0], k.Flags))
				}
			}
		}
		v.Spline0.Keys = joinKeys(keys0)
		v.Spline1.Keys = joinKeys(keys1)
		v.Spline2.Keys = joinKeys(keys2)
		env.Vars = append(env.Vars, v)
	}

	env.Constants.Sun.Latitude = "240"
	env.Constants.Sun.Longitude = "90"
	env.Constants.Sun.SunLinkedToTOD = "true"
	env.Constants.Moon.Latitude = "240"
	env.Constants.Moon.Longitude = "45"
	env.Constants.Moon.Size = "0.5"
	env.Constants.Moon.Texture = "%ENGINE%/EngineAssets/Textures/Skys/Night/half_moon.dds"

	envXML, err := xml.MarshalIndent(env, "", " ")
	if err != nil {
		return Result{}, err
	}

	ext := filepath.Ext(inputPath)
	stem := strings.TrimSuffix(inputPath, ext)
	envPath := stem + ".env"
	presetPath := filepath.Join(filepath.Dir(inputPath), filepath.Base(stem)+"_ce5.xml")

	tod := timeOfDay{Time: "12.0", TimeStart: "0", TimeEnd: "24", TimeAnimSpeed: "0"}
	tod.Presets.Preset = preset{
		Name:    "libs/environmentpresets/" + filepath.Base(envPath),
		Default: "1",
	}
	presetXML, err := xml.MarshalIndent(tod, "", " ")
	if err != nil {
		return Result{}, err
	}

	return Result{
		EnvPath:    envPath,
		EnvXML:     append([]byte(xml.Header), envXML...),
		PresetPath: presetPath,
		PresetXML:  append([]byte(xml.Header), presetXML...),
	}, nil
}

// parseLegacy scans the document for every <Variable> element regardless of
// nesting depth (original_source uses ET's ".//Variable" recursive find;
// encoding/xml struct tags only match direct children, so a token-by-token
// scan replaces it). Bare fragments not wrapped in a root element are
// wrapped in a synthetic <Root>, matching original_source's fallback.
func parseLegacy(content []byte) (legacyRoot, error) {
	text := strings.TrimSpace(string(content))
	if !strings.HasPrefix(text, "<") {
		return legacyRoot{}, fmt.Errorf("not well-formed xml")
	}
	if !strings.HasPrefix(text, "<Root") {
		text = "<Root>" + text + "</Root>"
	}

	var root legacyRoot
	dec := xml.NewDecoder(strings.NewReader(text))
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "Variable" {
			continue
		}
		var v legacyVariable
		if err := dec.DecodeElement(&v, &se); err != nil {
			continue
		}
		root.Variables = append(root.Variables, v)
	}
	return root, nil
}

func joinKeys(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return strings.Join(keys, ",") + ","
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

func formatNum(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
