package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/gjson"
)

// EnvPrefix prefixes every loom environment variable.
const EnvPrefix = "LOOM_"

// EnvLoader loads configuration from environment variables and .env
// files. The process environment wins over .env files.
type EnvLoader struct {
	prefix  string
	mapping map[string]string // env var -> config path
	files   []string
	environ func() []string
}

// NewEnvLoader creates a loader for variables starting with prefix,
// which includes the trailing underscore. dotenv files that do not exist
// are skipped.
func NewEnvLoader(prefix string, dotenv ...string) *EnvLoader {
	return &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(),
		files:   dotenv,
		environ: os.Environ,
	}
}

func defaultEnvMapping() map[string]string {
	return map[string]string{
		"LOOM_LOG_LEVEL":       "log.level",
		"LOOM_LOG_FILE":        "log.file",
		"LOOM_STORE_PATH":      "store.path",
		"LOOM_STORE_DEBOUNCE":  "store.debounce",
		"LOOM_DOCUMENT_ID":     "document.id",
		"LOOM_DOCUMENT_SOURCE": "document.source",
	}
}

// AddMapping maps an environment variable to a config path.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	l.mapping[envVar] = configPath
}

// SetEnviron replaces the process environment source.
func (l *EnvLoader) SetEnviron(environ func() []string) {
	l.environ = environ
}

// Load returns the prefixed variables as a nested map.
func (l *EnvLoader) Load() (map[string]any, error) {
	vars, err := l.dotenv()
	if err != nil {
		return nil, err
	}
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(name, l.prefix) {
			vars[name] = value
		}
	}

	config := make(map[string]any)
	for name, value := range vars {
		path, ok := l.mapping[name]
		if !ok {
			path = l.envToPath(name)
		}
		if path == "" {
			continue
		}
		SetByPath(config, path, parseValue(value))
	}
	return config, nil
}

func (l *EnvLoader) dotenv() (map[string]string, error) {
	var present []string
	for _, f := range l.files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	if len(present) == 0 {
		return map[string]string{}, nil
	}
	all, err := godotenv.Read(present...)
	if err != nil {
		return nil, fmt.Errorf("reading env files: %w", err)
	}
	vars := make(map[string]string, len(all))
	for name, value := range all {
		if strings.HasPrefix(name, l.prefix) {
			vars[name] = value
		}
	}
	return vars, nil
}

// envToPath converts LOOM_STORE_MAX_SIZE to store.maxSize.
func (l *EnvLoader) envToPath(env string) string {
	parts := strings.Split(strings.TrimPrefix(env, l.prefix), "_")
	if len(parts) == 0 || parts[0] == "" {
		return ""
	}
	section := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return section
	}
	name := strings.ToLower(parts[1])
	for _, part := range parts[2:] {
		if part != "" {
			name += strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
		}
	}
	return section + "." + name
}

// parseValue guesses the type of an environment value. Empty strings stay
// strings.
func parseValue(s string) any {
	if s == "" {
		return s
	}
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if (strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{")) && gjson.Valid(s) {
		return gjson.Parse(s).Value()
	}
	return s
}
