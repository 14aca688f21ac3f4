package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorCmd_Ready(t *testing.T) {
	// Given: a config whose paths are all usable
	indexFile := isolateConfig(t)
	dir := filepath.Dir(indexFile)
	client := filepath.Join(dir, "client")
	require.NoError(t, os.MkdirAll(client, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(client, "index.html"), []byte("<html>"), 0o644))
	t.Setenv("PEA_FILES_DIR", dir)
	t.Setenv("PEA_RECEIVED_FILES_DIR", filepath.Join(dir, "received"))
	t.Setenv("PEA_CLIENT_CONTENT_DIR", client)

	// When: running doctor --json
	out, err := runRoot(t, "doctor", "--json")

	// Then: every required check passes
	require.NoError(t, err)
	var report struct {
		Status string `json:"status"`
		Checks []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"checks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.NotEqual(t, "failed", report.Status)
	assert.NotEmpty(t, report.Checks)
}

func TestDoctorCmd_MissingContentRootFails(t *testing.T) {
	// Given: a content root that does not exist
	indexFile := isolateConfig(t)
	t.Setenv("PEA_FILES_DIR", filepath.Join(filepath.Dir(indexFile), "missing"))
	t.Setenv("PEA_RECEIVED_FILES_DIR", filepath.Join(filepath.Dir(indexFile), "received"))

	// When: running doctor
	out, err := runRoot(t, "doctor")

	// Then: the failure is printed and returned
	assert.ErrorContains(t, err, "content_root")
	assert.Contains(t, out, "[FAIL] content_root")
}
