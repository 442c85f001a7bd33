package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// ReadConfig reads a json5 configuration file. `name` must carry a file
// extension; a sibling `<name>.local.<ext>` file, if present, is merged on
// top of the base file so machine-local overrides (credentials, paths) can
// stay out of version control.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found := false

	dir := filepath.Dir(name)
	base := filepath.Base(name)
	prefix, ext := base, ""
	if idx := strings.LastIndexByte(base, '.'); idx >= 0 {
		prefix, ext = base[:idx], base[idx+1:]
	}

	contents, err := os.ReadFile(name)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(contents) > 0 {
		if err := json5.Unmarshal(contents, &out); err != nil {
			return out, fmt.Errorf("parse %s: %w", name, err)
		}
		found = true
	}

	localPath := filepath.Join(dir, fmt.Sprintf("%s.local.%s", prefix, ext))
	localContents, err := os.ReadFile(localPath)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localContents) > 0 {
		var override T
		if err := json5.Unmarshal(localContents, &override); err != nil {
			return out, fmt.Errorf("parse %s: %w", localPath, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, err
		}
		slog.Info("merging config with local overrides", "local", localPath)
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}
