package pivotcalc

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 3, 10, 7, 30, 0, 0, time.UTC)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd(&out, func() time.Time { return fixedNow })
	root.SetArgs(args)
	root.SetErr(&bytes.Buffer{})
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

const rowYAML = `
id: "8c1f"
numero_os: OS-123456
pivo_id: p-7
status: Interrompida
parcela: Alta
posicao_atual: 95
progresso_parcela: Meio
data_efetiva_inicio: "2025-03-10T06:00:00Z"
data_conclusao: null
historico_interrupcoes:
  - data_interrupcao: "2025-03-10T06:10:00Z"
    data_retomada: "2025-03-10T06:25:00Z"
    motivo: falta de energia
  - data_interrupcao: "2025-03-10T07:00:00Z"
    motivo: Outro
`

func TestEfficiencyFromYAML(t *testing.T) {
	path := writeFile(t, "order.yaml", rowYAML)

	out, err := run(t, "efficiency", "--file", path)
	require.NoError(t, err)
	assert.Contains(t, out, "order 8c1f (Interrompida)")
	assert.Contains(t, out, "total:        1h 30min 0s")
	assert.Contains(t, out, "efficiency:   50.0% (poor)")
	assert.Contains(t, out, "stops:        2, average resume 15min 0s")
	assert.Contains(t, out, "- Falta de energia: 2025-03-10T06:10:00Z -> 2025-03-10T06:25:00Z (15min)")
	assert.Contains(t, out, "- Outro: 2025-03-10T07:00:00Z -> open (30min)")
}

func TestEfficiencyJSONWithNow(t *testing.T) {
	path := writeFile(t, "order.json", `{"id": "o1", "status": "Em Andamento", "parcela": "TOTAL", "data_efetiva_inicio": "2025-03-10T06:00:00Z", "historico_interrupcoes": []}`)

	out, err := run(t, "efficiency", "-f", path, "--now", "2025-03-10T08:00:00Z", "--json")
	require.NoError(t, err)

	var res efficiencyResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "o1", res.OrderID)
	assert.Equal(t, 120, res.Efficiency.TotalMinutes)
	assert.Equal(t, 100.0, res.Efficiency.Percent)
	assert.Equal(t, "2h 0min", res.Irrigating)
	assert.Empty(t, res.Stops)
}

func TestEfficiencyVerboseWarnings(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
id: o2
status: Em Andamento
parcela: Baixa
data_efetiva_inicio: "2025-03-10T06:00:00Z"
historico_interrupcoes:
  - data_interrupcao: "2025-03-10T06:30:00Z"
    data_retomada: "2025-03-10T06:20:00Z"
    motivo: Outro
`)
	out, err := run(t, "efficiency", "-f", path, "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "warning: interruption resumed before it stopped: record 0")
	assert.Contains(t, out, "stopped:      -10min 0s")
}

func TestEfficiencyErrors(t *testing.T) {
	_, err := run(t, "efficiency")
	assert.Error(t, err, "--file is required")

	pending := writeFile(t, "p.yaml", "id: o3\nstatus: Pendente\nparcela: Alta\n")
	_, err = run(t, "efficiency", "-f", pending)
	assert.ErrorIs(t, err, errNotStarted)

	_, err = run(t, "efficiency", "-f", pending, "--now", "yesterday")
	assert.Error(t, err)

	_, err = run(t, "efficiency", "-f", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

const scenarioYAML = `
order:
  id: sim-1
  pivot_id: p-1
  zone: Alta
  angle: 10
events:
  - {at: "2025-03-10T10:00:00Z", action: start}
  - {at: "2025-03-10T10:30:00Z", action: pause, reason: falta de energia}
  - {at: "2025-03-10T10:40:00Z", action: resume, by: Ana, angle: 95}
  - {at: "2025-03-10T11:00:00Z", action: complete}
now: "2025-03-10T12:00:00Z"
`

func TestSimulate(t *testing.T) {
	path := writeFile(t, "sim.yaml", scenarioYAML)
	out, err := run(t, "simulate", "-f", path, "--json")
	require.NoError(t, err)

	var res efficiencyResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Concluída", res.Status)
	assert.Equal(t, 60, res.Efficiency.TotalMinutes, "completion ends the window, not now")
	assert.Equal(t, 10, res.Efficiency.StoppedMinutes)
	assert.Equal(t, 83.3, res.Efficiency.Percent)
	require.Len(t, res.Stops, 1)
	assert.Equal(t, "Falta de energia", res.Stops[0].Reason)
}

func TestScenarioReplayRejectsBadTransition(t *testing.T) {
	path := writeFile(t, "bad.yaml", `
order: {id: x, zone: Alta}
events:
  - {at: "2025-03-10T10:00:00Z", action: resume}
`)
	_, err := run(t, "simulate", "-f", path)
	assert.ErrorContains(t, err, "event 0 (resume)")
}

func TestCalculators(t *testing.T) {
	out, err := run(t, "stage", "--angle", "95", "--zone", "UPPER_HALF")
	require.NoError(t, err)
	assert.Equal(t, "MIDDLE (Meio)\n", out)

	out, err = run(t, "stage", "--angle", "200", "--zone", "Alta")
	require.NoError(t, err)
	assert.Equal(t, "angle 200 is outside zone UPPER_HALF\n", out)

	out, err = run(t, "angle", "--stage", "Fim", "--zone", "TOTAL", "--ref", "200")
	require.NoError(t, err)
	assert.Equal(t, "330\n", out)

	out, err = run(t, "percent", "--angle", "270", "--zone", "Baixa")
	require.NoError(t, err)
	assert.Equal(t, "50.0%\n", out)

	out, err = run(t, "percent", "--angle", "50", "--zone", "Baixa", "--inverse")
	require.NoError(t, err)
	assert.Equal(t, "270\n", out)

	out, err = run(t, "format", "--minutes", "62.5")
	require.NoError(t, err)
	assert.Equal(t, "1h 2min 30s\n", out)

	_, err = run(t, "stage", "--angle", "1", "--zone", "north")
	assert.ErrorContains(t, err, "unknown zone")
	_, err = run(t, "angle", "--stage", "late")
	assert.ErrorContains(t, err, "unknown stage")
}
