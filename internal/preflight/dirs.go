package preflight

import (
	"fmt"
	"os"
	"path/filepath"
)

const probeName = ".pea-preflight"

func indexDir(indexFile string) string {
	if indexFile == "" {
		return "."
	}
	return filepath.Dir(indexFile)
}

// CheckIndexDir checks that the directory holding the index file can be
// created and written.
func (c *Checker) CheckIndexDir(indexFile string) CheckResult {
	result := CheckResult{Name: "index_dir", Required: true}
	if indexFile == "" {
		result.Status = StatusFail
		result.Message = "index.file is not set"
		return result
	}
	dir := indexDir(indexFile)
	if err := writable(dir); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not writable", dir)
		result.Details = err.Error()
		return result
	}
	result.Status = StatusPass
	result.Message = dir
	return result
}

// CheckContentRoot checks that the content root is a readable directory.
// An unset root only warns since the server can run on uploads alone.
func (c *Checker) CheckContentRoot(root string) CheckResult {
	result := CheckResult{Name: "content_root", Required: true}
	if root == "" {
		result.Status = StatusWarn
		result.Required = false
		result.Message = "not configured, only uploads will be indexed"
		return result
	}

	info, err := os.Stat(root)
	switch {
	case err != nil:
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s does not exist", root)
		result.Details = err.Error()
		return result
	case !info.IsDir():
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not a directory", root)
		return result
	}
	f, err := os.Open(root)
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not readable", root)
		result.Details = err.Error()
		return result
	}
	_ = f.Close()

	result.Status = StatusPass
	result.Message = root
	return result
}

// CheckReceivedDir checks that uploads can be stored.
func (c *Checker) CheckReceivedDir(dir string) CheckResult {
	result := CheckResult{Name: "received_dir", Required: true}
	if dir == "" {
		result.Status = StatusFail
		result.Message = "index.received_dir is not set"
		return result
	}
	if err := writable(dir); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("%s is not writable", dir)
		result.Details = err.Error()
		return result
	}
	result.Status = StatusPass
	result.Message = dir
	return result
}

// CheckClientDir warns when the web client is missing. The API works
// without it.
func (c *Checker) CheckClientDir(dir string) CheckResult {
	result := CheckResult{Name: "client_dir", Required: false}
	if dir == "" {
		result.Status = StatusWarn
		result.Message = "not configured, / will return 404"
		return result
	}
	if _, err := os.Stat(filepath.Join(dir, "index.html")); err != nil {
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s has no index.html", dir)
		return result
	}
	result.Status = StatusPass
	result.Message = dir
	return result
}

// writable creates dir if needed and writes a probe file into it.
func writable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	probe := filepath.Join(dir, probeName)
	f, err := os.Create(probe)
	if err != nil {
		return err
	}
	_ = f.Close()
	return os.Remove(probe)
}
