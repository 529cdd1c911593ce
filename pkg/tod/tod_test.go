package tod_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/atomicobject/assetwatch/pkg/tod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertProducesEnvAndPresetFiles(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "day.xml")
	content := `<Root>
  <Variable Name="Sun color multiplier"><Spline Keys="0:1:0,0.5:2:0,"/></Variable>
  <Variable Name="Fog color"><Spline Keys="0:(0.1:0.2:0.3):0,0.5:(0.4:0.5:0.6):0,"/></Variable>
</Root>`
	require.NoError(t, os.WriteFile(input, []byte(content), 0o644))

	res, err := tod.Convert(input)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "day.env"), res.EnvPath)
	assert.Equal(t, filepath.Join(dir, "day_ce5.xml"), res.PresetPath)
	assert.Contains(t, string(res.EnvXML), "EnvironmentPreset")
	assert.Contains(t, string(res.EnvXML), "PARAM_FOG_COLOR")
	assert.Contains(t, string(res.PresetXML), "TimeOfDay")
	assert.Contains(t, string(res.PresetXML), "day.env")
}

func TestConvertFallsBackToComputedSunIntensity(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "day.xml")
	content := `<Root><Variable Name="Sun color"><Spline Keys="0:(1:1:1):0,"/></Variable></Root>`
	require.NoError(t, os.WriteFile(input, []byte(content), 0o644))

	res, err := tod.Convert(input)
	require.NoError(t, err)
	assert.Contains(t, string(res.EnvXML), "PARAM_SUN_INTENSITY")
}

func TestSplineEvaluateInterpolatesBetweenKeys(t *testing.T) {
	s := &tod.Spline{}
	s.AddKey(0, []float64{0}, 0)
	s.AddKey(0.5, []float64{10}, 0)

	got := s.Evaluate(0.25)
	require.Len(t, got, 1)
	assert.InDelta(t, 5.0, got[0], 0.001)
}

func TestSplineEvaluateSingleKeyReturnsItsValue(t *testing.T) {
	s := &tod.Spline{}
	s.AddKey(0.3, []float64{7}, 0)
	got := s.Evaluate(0.9)
	assert.Equal(t, []float64{7}, got)
}

func TestConvertRejectsNonXMLContent(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "day.xml")
	require.NoError(t, os.WriteFile(input, []byte("not xml at all"), 0o644))

	_, err := tod.Convert(input)
	assert.Error(t, err)
}
