// Package config provides the configuration loader for cloudbuilder.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// Loader implements ports.ConfigLoader using a YAML file, an optional .env file
// next to it and CLOUDBUILDER_* environment variables, in increasing precedence.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Load reads the configuration at path. An empty path selects cloudbuilder.yaml in
// the working directory, which may be absent; an explicit path must exist.
func (l *Loader) Load(path string) (*domain.Config, error) {
	explicit := path != ""
	if !explicit {
		path = domain.ConfigFileName
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "path", path)
	}
	dir := filepath.Dir(path)

	l.loadEnvFile(filepath.Join(dir, domain.EnvFileName))

	file := defaults()
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	switch {
	case err == nil:
		if err := decode(data, &file); err != nil {
			return nil, zerr.With(err, "path", path)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		l.Logger.Info(fmt.Sprintf("%s not found, using defaults", domain.ConfigFileName))
	default:
		return nil, zerr.With(zerr.Wrap(domain.ErrConfigReadFailed, err.Error()), "path", path)
	}

	if err := applyEnv(&file); err != nil {
		return nil, err
	}

	return toDomain(&file, dir)
}

func (l *Loader) loadEnvFile(path string) {
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		l.Logger.Warn(fmt.Sprintf("ignoring %s: %v", path, err))
	}
}

func decode(data []byte, file *File) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(file); err != nil && !errors.Is(err, io.EOF) {
		return zerr.Wrap(domain.ErrConfigParseFailed, err.Error())
	}
	return nil
}

func applyEnv(file *File) error {
	if v, ok := lookup("LOG_JSON"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "not a boolean"), "env", domain.EnvPrefix+"LOG_JSON")
		}
		file.Log.JSON = b
	}
	if v, ok := lookup("WORKER_LISTEN"); ok {
		file.Worker.Listen = v
	}
	if v, ok := lookup("WORKER_WORKSPACE_ROOT"); ok {
		file.Worker.WorkspaceRoot = v
	}
	if v, ok := lookup("WORKER_PROJECT_ROOT"); ok {
		file.Worker.ProjectRoot = v
	}
	if v, ok := lookup("WORKER_TOOL"); ok {
		file.Worker.Tool = strings.Fields(v)
	}
	if v, ok := lookup("ORCHESTRATOR_LISTEN"); ok {
		file.Orchestrator.Listen = v
	}
	if v, ok := lookup("ORCHESTRATOR_STORAGE_ROOT"); ok {
		file.Orchestrator.StorageRoot = v
	}
	if v, ok := lookup("ORCHESTRATOR_TARGETS"); ok {
		targets, err := parseTargets(v)
		if err != nil {
			return err
		}
		file.Orchestrator.Targets = targets
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(domain.EnvPrefix + key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// parseTargets reads "name=url,name=url".
func parseTargets(v string) (map[string]string, error) {
	targets := make(map[string]string)
	for pair := range strings.SplitSeq(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, target, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, zerr.With(
				zerr.Wrap(domain.ErrConfigInvalid, "expected name=url"),
				"env", domain.EnvPrefix+"ORCHESTRATOR_TARGETS",
			)
		}
		targets[strings.TrimSpace(name)] = strings.TrimSpace(target)
	}
	return targets, nil
}

func toDomain(file *File, dir string) (*domain.Config, error) {
	for name, target := range file.Orchestrator.Targets {
		if !domain.IsPlainName(name) {
			return nil, zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "invalid target name"), "target", name)
		}
		u, err := url.Parse(target)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, zerr.With(
				zerr.With(zerr.Wrap(domain.ErrConfigInvalid, "target url must be http(s)://host[:port]"), "target", name),
				"url", target,
			)
		}
	}

	return &domain.Config{
		Log: domain.LogConfig{JSON: file.Log.JSON},
		Worker: domain.WorkerConfig{
			Listen:        file.Worker.Listen,
			WorkspaceRoot: resolve(dir, file.Worker.WorkspaceRoot),
			ProjectRoot:   resolve(dir, file.Worker.ProjectRoot),
			Tool:          file.Worker.Tool,
		},
		Orchestrator: domain.OrchestratorConfig{
			Listen:      file.Orchestrator.Listen,
			StorageRoot: resolve(dir, file.Orchestrator.StorageRoot),
			Targets:     file.Orchestrator.Targets,
		},
	}, nil
}

// resolve makes relative paths relative to the configuration directory.
func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
