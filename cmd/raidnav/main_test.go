package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withConfig(t *testing.T, body string) string {
	t.Helper()
	t.Cleanup(viper.Reset)
	dir := t.TempDir()
	if body != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "raidnav.cfg.json"), []byte(body), 0o644))
	}
	t.Setenv("RAIDNAV_CONFIG_DIR", dir)
	return dir
}

func TestRun_NoArgs(t *testing.T) {
	var out bytes.Buffer
	assert.Equal(t, exitSetupError, run(nil, &out))
	assert.Contains(t, out.String(), "usage: raidnav")
}

func TestRun_UnknownCommand(t *testing.T) {
	withConfig(t, "")
	var out bytes.Buffer
	assert.Equal(t, exitSetupError, run([]string{"launch"}, &out))
	assert.Contains(t, out.String(), `unknown command "launch"`)
}

func TestRun_Version(t *testing.T) {
	withConfig(t, "")
	var out bytes.Buffer
	assert.Equal(t, exitOK, run([]string{"version"}, &out))
	assert.True(t, strings.HasPrefix(out.String(), "raidnav "+Version))
}

func TestRun_Ports(t *testing.T) {
	withConfig(t, `{"ports": {"distance": 50, "perSector": 1, "sectors": 4}}`)
	var out bytes.Buffer
	require.Equal(t, exitOK, run([]string{"ports"}, &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "0.0°")
	assert.Contains(t, lines[1], "90.0°")
}

func TestRun_Path(t *testing.T) {
	withConfig(t, "")
	var out bytes.Buffer
	require.Equal(t, exitOK, run([]string{"path", "500", "0"}, &out))

	text := out.String()
	assert.Contains(t, text, "inbound path from (500.0, 0.0)")
	// default band 3..8 walks six rings
	assert.Contains(t, text, "6 tiles")
	assert.Contains(t, text, "(8,0)")
	assert.Contains(t, text, "(3,0)")
}

func TestRun_PathArgs(t *testing.T) {
	withConfig(t, "")
	var out bytes.Buffer
	assert.Equal(t, exitSetupError, run([]string{"path", "1"}, &out))
	out.Reset()
	assert.Equal(t, exitSetupError, run([]string{"path", "x", "1"}, &out))
	out.Reset()
	assert.Equal(t, exitSetupError, run([]string{"path", "1", "1", "sideways"}, &out))
	assert.Contains(t, out.String(), "unknown direction")
}

func TestRun_InvalidGrid(t *testing.T) {
	withConfig(t, `{"grid": {"blocked": [[1]]}}`)
	var out bytes.Buffer
	assert.Equal(t, exitSetupError, run([]string{"ports"}, &out))
	assert.Contains(t, out.String(), "want [ring, index]")
}

func TestRun_RecordsToMemory(t *testing.T) {
	dir := t.TempDir()
	logsDir := filepath.Join(dir, "logs")
	recDir := filepath.Join(dir, "recordings")
	withConfig(t, `{
		"logsDir": "`+filepath.ToSlash(logsDir)+`",
		"raid": {"startDistance": 300, "seed": 7, "waves": [[2]]},
		"sim": {"tickRate": 50, "maxTicks": 3000, "captureEvery": 25},
		"storage": {"type": "memory", "memory": {"outputDir": "`+filepath.ToSlash(recDir)+`", "compressOutput": false}}
	}`)

	var out bytes.Buffer
	require.Equal(t, exitOK, run([]string{"run"}, &out))

	text := out.String()
	assert.Contains(t, text, "(seed 7)")
	assert.Contains(t, text, "wave 1:")
	assert.Contains(t, text, "recording: ")

	recordings, err := filepath.Glob(filepath.Join(recDir, "*.json"))
	require.NoError(t, err)
	assert.Len(t, recordings, 1)

	_, err = os.Stat(filepath.Join(logsDir, "status.txt"))
	assert.NoError(t, err)
}

func TestRun_UnknownStorage(t *testing.T) {
	dir := t.TempDir()
	withConfig(t, `{"logsDir": "`+filepath.ToSlash(dir)+`", "storage": {"type": "tape"}}`)

	var out bytes.Buffer
	assert.Equal(t, exitSetupError, run([]string{"run"}, &out))
	assert.Contains(t, out.String(), "unknown storage type: tape")
}

func TestRun_UploadsRecording(t *testing.T) {
	var uploads atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/runs" {
			if assert.NoError(t, r.ParseMultipartForm(10<<20)) {
				assert.Equal(t, "7", r.FormValue("seed"))
			}
			uploads.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dir := t.TempDir()
	withConfig(t, `{
		"logsDir": "`+filepath.ToSlash(filepath.Join(dir, "logs"))+`",
		"raid": {"startDistance": 300, "seed": 7, "waves": [[1]]},
		"sim": {"tickRate": 50, "maxTicks": 500, "captureEvery": 25},
		"storage": {"type": "memory", "memory": {"outputDir": "`+filepath.ToSlash(dir)+`", "compressOutput": true}},
		"api": {"uploadUrl": "`+server.URL+`", "apiKey": "k"}
	}`)

	var out bytes.Buffer
	require.Equal(t, exitOK, run([]string{"run"}, &out))
	assert.Equal(t, int32(1), uploads.Load())
}
