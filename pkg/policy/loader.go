package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultReloadDelay debounces policy reloads while watching.
const DefaultReloadDelay = 500 * time.Millisecond

// policyParsers maps a file extension to the parser for that kind of
// policy file. Files with other extensions are not policies.
var policyParsers = map[string]func(path string, data []byte) (*Policy, error){
	".rego": parseRegoPolicy,
	".json": parseJSONPolicy,
}

func isPolicyFile(path string) bool {
	_, ok := policyParsers[filepath.Ext(path)]
	return ok
}

// Loader reads user policies from .rego and .json files and caches them
// by path until the file changes.
type Loader struct {
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]*Policy

	// ReloadDelay is how long Watch waits for changes to settle.
	ReloadDelay time.Duration
}

// NewLoader creates a policy loader.
func NewLoader(logger zerolog.Logger) *Loader {
	return &Loader{
		logger:      logger.With().Str("component", "policy-loader").Logger(),
		cache:       make(map[string]*Policy),
		ReloadDelay: DefaultReloadDelay,
	}
}

// LoadFromPaths loads every policy named by paths. A file path must be a
// valid policy; a directory is searched recursively and files in it that
// fail to load are logged and skipped.
func (l *Loader) LoadFromPaths(ctx context.Context, paths []string) ([]Policy, error) {
	var policies []Policy

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load from path %s: %w", path, err)
		}

		if !info.IsDir() {
			p, err := l.loadFromFile(ctx, path)
			if err != nil {
				return nil, fmt.Errorf("failed to load from path %s: %w", path, err)
			}
			policies = append(policies, *p)
			continue
		}

		err = filepath.WalkDir(path, func(file string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !isPolicyFile(file) {
				return err
			}
			p, err := l.loadFromFile(ctx, file)
			if err != nil {
				l.logger.Warn().Err(err).Str("path", file).Msg("Skipping policy file")
				return nil
			}
			policies = append(policies, *p)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load from path %s: %w", path, err)
		}
	}

	l.logger.Info().
		Int("total", len(policies)).
		Int("sources", len(paths)).
		Msg("Policies loaded from paths")

	return policies, nil
}

func (l *Loader) loadFromFile(_ context.Context, path string) (*Policy, error) {
	l.mu.RLock()
	cached, ok := l.cache[path]
	l.mu.RUnlock()
	if ok {
		return cached, nil
	}

	parse, ok := policyParsers[filepath.Ext(path)]
	if !ok {
		return nil, fmt.Errorf("unsupported file type: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	p, err := parse(path, data)
	if err != nil {
		return nil, err
	}
	p.Source = path

	l.mu.Lock()
	l.cache[path] = p
	l.mu.Unlock()

	l.logger.Debug().
		Str("path", path).
		Str("policy", p.Name).
		Msg("Policy loaded from file")

	return p, nil
}

// parseRegoPolicy names the policy after its file. The leading comment
// block gives the description, and a "# severity: <level>" line in it the
// severity.
func parseRegoPolicy(path string, data []byte) (*Policy, error) {
	description, severity := regoHeader(string(data))
	sev, err := ParseSeverity(severity)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Policy{
		Name:        strings.TrimSuffix(filepath.Base(path), ".rego"),
		Description: description,
		Rego:        string(data),
		Severity:    sev,
		Enabled:     true,
		Tags:        []string{},
	}, nil
}

func regoHeader(content string) (description, severity string) {
	severity = string(SeverityWarning)
	var words []string

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		comment, isComment := strings.CutPrefix(line, "#")
		if !isComment {
			if line != "" && len(words) > 0 {
				break
			}
			continue
		}
		comment = strings.TrimSpace(comment)
		if value, ok := strings.CutPrefix(comment, "severity:"); ok {
			severity = strings.TrimSpace(value)
			continue
		}
		if comment != "" && !strings.HasPrefix(comment, "package") {
			words = append(words, comment)
		}
	}

	return strings.Join(words, " "), severity
}

// jsonPolicy is the on-disk form of a JSON policy. Enabled is a pointer so
// an omitted field means enabled.
type jsonPolicy struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Rego        string   `json:"rego"`
	Severity    Severity `json:"severity"`
	Enabled     *bool    `json:"enabled"`
	Tags        []string `json:"tags"`
}

func parseJSONPolicy(path string, data []byte) (*Policy, error) {
	var jp jsonPolicy
	if err := json.Unmarshal(data, &jp); err != nil {
		return nil, fmt.Errorf("failed to parse JSON policy: %w", err)
	}

	if jp.Name == "" {
		jp.Name = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	if jp.Rego == "" {
		return nil, fmt.Errorf("JSON policy %s has no rego", jp.Name)
	}
	if jp.Severity == "" {
		jp.Severity = SeverityWarning
	}
	sev, err := ParseSeverity(string(jp.Severity))
	if err != nil {
		return nil, err
	}

	return &Policy{
		Name:        jp.Name,
		Description: jp.Description,
		Rego:        jp.Rego,
		Severity:    sev,
		Enabled:     jp.Enabled == nil || *jp.Enabled,
		Tags:        jp.Tags,
	}, nil
}

// Watch reloads the policies under paths after they change and passes the
// new set to apply. It returns once watching has started; watching stops
// when ctx is cancelled.
func (l *Loader) Watch(ctx context.Context, paths []string, apply func([]Policy) error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	for _, path := range paths {
		if err := addWatches(watcher, path); err != nil {
			l.logger.Warn().Err(err).Str("path", path).Msg("Cannot watch policy path")
		}
	}

	go l.watchLoop(ctx, watcher, func() {
		policies, err := l.LoadFromPaths(ctx, paths)
		if err == nil {
			err = apply(policies)
		}
		if err != nil {
			l.logger.Error().Err(err).Msg("Failed to reload policies")
			return
		}
		l.logger.Info().Int("count", len(policies)).Msg("Policies reloaded")
	})

	l.logger.Info().
		Int("paths", len(paths)).
		Msg("Started watching policy paths")

	return nil
}

// addWatches watches a policy file, or every directory below a policy
// directory.
func addWatches(watcher *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(path)
	}
	return filepath.WalkDir(path, func(dir string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}
		return watcher.Add(dir)
	})
}

func (l *Loader) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, reload func()) {
	defer watcher.Close()

	delay := l.ReloadDelay
	if delay <= 0 {
		delay = DefaultReloadDelay
	}
	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 || !isPolicyFile(event.Name) {
				continue
			}

			l.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("Policy file changed")

			l.mu.Lock()
			delete(l.cache, event.Name)
			l.mu.Unlock()

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(delay, reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.logger.Error().Err(err).Msg("Policy watcher error")
		}
	}
}

// ClearCache drops every cached policy.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	l.cache = make(map[string]*Policy)
	l.mu.Unlock()
}
