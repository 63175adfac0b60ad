package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/keskad/trackctl/pkgs/output"
	"github.com/stretchr/testify/assert"
)

func TestPrintOutputsAction(t *testing.T) {
	mapFile := filepath.Join(t.TempDir(), "map.txt")
	content := `# Tb1 (F6)
# Pc5, Czerwone, tylnie kierunkowe (F7)
O1:F6<
O2:F6>
O3:F7>
O4:F7<
`
	assert.NoError(t, os.WriteFile(mapFile, []byte(content), 0o644))

	p := &output.BufferPrinter{}
	app := &LocoApp{P: p}

	assert.NoError(t, app.PrintOutputsAction(mapFile))

	out := p.String()
	assert.Contains(t, out, "White lights")
	assert.Contains(t, out, "Red lights")
	assert.Contains(t, out, "Functions referenced  : F6, F7")
}

func TestPrintOutputsActionMicrocontrollerBoard(t *testing.T) {
	mapFile := filepath.Join(t.TempDir(), "map.txt")
	content := `O1:F0>
O2:F0<
`
	assert.NoError(t, os.WriteFile(mapFile, []byte(content), 0o644))

	p := &output.BufferPrinter{}
	app := &LocoApp{P: p}

	assert.NoError(t, app.PrintOutputsAction(mapFile))
	assert.Contains(t, p.String(), "on-board microcontroller")
}
