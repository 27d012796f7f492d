package instance

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ecas/core/model"
)

const smallJSON = `{
  "time_resolution": 360,
  "resources": 3,
  "machines": [
    {"id": 1, "idle_consumption": 1.5, "power_up_cost": 2, "power_down_cost": 1, "resource_capacities": [4, 8, 2]}
  ],
  "tasks": [
    {"id": 7, "earliest_start_time": 1, "latest_end_time": 4, "duration": 2, "power_consumption": 3, "resource_usage": [1, 2, 0]}
  ],
  "energy_prices": [1, 2, 3, 4]
}`

const smallYAML = `time_resolution: 360
machines:
  - id: 1
    idle_consumption: 1.5
    power_up_cost: 2
    power_down_cost: 1
    resource_capacities: [4, 8, 2]
tasks:
  - id: 7
    name: backup
    earliest_start_time: 1
    latest_end_time: 4
    duration: 2
    power_consumption: 3
    resource_usage: [1, 2, 0]
energy_prices: [1, 2, 3, 4]
`

func TestDecode_JSON(t *testing.T) {
	inst, err := Decode(strings.NewReader(smallJSON), JSON)
	require.NoError(t, err)
	assert.Equal(t, 4, inst.TimeSlots())
	require.Len(t, inst.Machines, 1)
	assert.Equal(t, []int{4, 8, 2}, inst.Machines[0].ResourceCapacity)
	require.Len(t, inst.Tasks, 1)
	assert.Equal(t, "Task_7", inst.Tasks[0].DisplayName())
	assert.Equal(t, model.PriceSchedule{1, 2, 3, 4}, inst.Prices)
}

func TestDecode_YAML(t *testing.T) {
	inst, err := Decode(strings.NewReader(smallYAML), YAML)
	require.NoError(t, err)
	assert.Equal(t, "backup", inst.Tasks[0].DisplayName())
	assert.Equal(t, 1.5, inst.Machines[0].IdleConsumption)
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]struct {
		data   string
		format Format
	}{
		"syntax":        {`{"time_resolution": `, JSON},
		"unknown key":   {`{"time_resolution": 360, "colour": 1}`, JSON},
		"yaml type":     {"time_resolution: sixty\n", YAML},
		"empty yaml":    {"", YAML},
		"short prices":  {strings.Replace(smallJSON, "[1, 2, 3, 4]", "[1, 2]", 1), JSON},
		"window":        {strings.Replace(smallJSON, `"latest_end_time": 4`, `"latest_end_time": 2`, 1), JSON},
		"bad divisor":   {strings.Replace(smallJSON, `"time_resolution": 360`, `"time_resolution": 7`, 1), JSON},
		"resource kind": {strings.Replace(smallJSON, `"resources": 3`, `"resources": 2`, 1), JSON},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(c.data), c.format)
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrMalformedInstance)
		})
	}
}

func TestLoadAndWrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "small.json")
	require.NoError(t, os.WriteFile(src, []byte(smallJSON), 0o644))
	inst, format, err := Load(src)
	require.NoError(t, err)
	assert.Equal(t, JSON, format)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, inst, YAML))
	dst := filepath.Join(dir, "small.yml")
	require.NoError(t, os.WriteFile(dst, buf.Bytes(), 0o644))
	again, format, err := Load(dst)
	require.NoError(t, err)
	assert.Equal(t, YAML, format)
	assert.Equal(t, inst, again)

	_, _, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestLoadWithoutExtension(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]struct {
		data string
		want Format
	}{
		"instance":     {"\n  " + smallJSON, JSON},
		"instance.txt": {smallYAML, YAML},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(c.data), 0o644))
			inst, format, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, c.want, format)
			assert.Equal(t, 4, inst.TimeSlots())
		})
	}
	assert.Equal(t, JSON, FormatOf("x.JSON", []byte("a: 1")))
	assert.Equal(t, YAML, FormatOf("x.yaml", []byte("{}")))
}
