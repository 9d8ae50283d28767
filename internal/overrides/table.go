package overrides

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"marquee/internal/fileutil"
	"marquee/internal/logging"
	"marquee/internal/textutil"
)

// Entry pins one movie to one category.
type Entry struct {
	MovieID   int64  `json:"movieId" yaml:"movieId" validate:"required,gt=0"`
	MovieName string `json:"movieName,omitempty" yaml:"movieName,omitempty"`
	Code      string `json:"genreCode" yaml:"genreCode" validate:"required,max=64"`
}

// Format is the on-disk encoding of a table.
type Format int

const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFor picks the encoding from a file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

var validate = validator.New()

// Table is a lazily loaded classification file.
type Table struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	loaded  time.Time
	entries []Entry
}

// NewTable returns a table backed by path, or nil when path is empty.
func NewTable(path string, logger *slog.Logger) *Table {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil
	}
	return &Table{path: trimmed, logger: logging.NewComponentLogger(logger, "overrides")}
}

// Path returns the backing file path.
func (t *Table) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// Entries returns the current table contents. A missing file is an empty
// table.
func (t *Table) Entries() ([]Entry, error) {
	if t == nil {
		return nil, nil
	}
	if err := t.ensureLoaded(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Entry(nil), t.entries...), nil
}

// Assignments maps movie ids to category codes. When an id repeats, the
// last entry wins.
func (t *Table) Assignments() (map[int64]string, error) {
	entries, err := t.Entries()
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(entries))
	for _, e := range entries {
		out[e.MovieID] = e.Code
	}
	return out, nil
}

// Add inserts or replaces the entry for e.MovieID and rewrites the file.
func (t *Table) Add(e Entry) error {
	if t == nil {
		return errors.New("no classification file configured")
	}
	e.normalize()
	if err := validate.Struct(&e); err != nil {
		return describe(0, err)
	}
	entries, err := t.Entries()
	if err != nil {
		return err
	}
	replaced := false
	for i := range entries {
		if entries[i].MovieID == e.MovieID {
			entries[i] = e
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, e)
	}
	return t.Save(entries)
}

// Save writes entries sorted by movie id, replacing the file atomically.
func (t *Table) Save(entries []Entry) error {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MovieID < sorted[j].MovieID })
	data, err := Encode(sorted, FormatFor(t.path))
	if err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(t.path, data, 0o644); err != nil {
		return fmt.Errorf("save classifications: %w", err)
	}

	t.mu.Lock()
	t.entries = sorted
	t.loaded = time.Time{}
	t.mu.Unlock()
	return nil
}

func (t *Table) ensureLoaded() error {
	info, err := os.Stat(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.mu.Lock()
			t.entries = nil
			t.loaded = time.Time{}
			t.mu.Unlock()
			return nil
		}
		return fmt.Errorf("stat classifications: %w", err)
	}

	t.mu.RLock()
	alreadyLoaded := !t.loaded.IsZero() && t.loaded.Equal(info.ModTime())
	t.mu.RUnlock()
	if alreadyLoaded {
		return nil
	}

	data, err := os.ReadFile(t.path)
	if err != nil {
		return fmt.Errorf("read classifications: %w", err)
	}
	entries, err := Parse(data, FormatFor(t.path))
	if err != nil {
		return fmt.Errorf("parse %s: %w", t.path, err)
	}

	t.mu.Lock()
	t.entries = entries
	t.loaded = info.ModTime()
	t.mu.Unlock()
	t.logger.Info("loaded manual classifications", logging.String("path", t.path), logging.Int("count", len(entries)))
	return nil
}

// Parse decodes and validates a table.
func Parse(data []byte, format Format) ([]Entry, error) {
	data = bytes.TrimPrefix(data, []byte("\xEF\xBB\xBF"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var (
		entries []Entry
		err     error
	)
	switch format {
	case FormatYAML:
		entries, err = parseYAML(data)
	default:
		entries, err = parseJSON(bytes.TrimSpace(data))
	}
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].normalize()
		if err := validate.Struct(&entries[i]); err != nil {
			return nil, describe(i, err)
		}
	}
	return entries, nil
}

func parseJSON(data []byte) ([]Entry, error) {
	if data[0] != '{' {
		var entries []Entry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}
	var wrapper struct {
		Overrides  []Entry           `json:"overrides"`
		Classified map[string]string `json:"classified"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, err
	}
	if len(wrapper.Classified) == 0 {
		return wrapper.Overrides, nil
	}
	return fromMap(wrapper.Overrides, wrapper.Classified)
}

func parseYAML(data []byte) ([]Entry, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		var entries []Entry
		if err := node.Decode(&entries); err != nil {
			return nil, err
		}
		return entries, nil
	}
	var wrapper struct {
		Overrides  []Entry           `yaml:"overrides"`
		Classified map[string]string `yaml:"classified"`
	}
	if err := node.Decode(&wrapper); err != nil {
		return nil, err
	}
	if len(wrapper.Classified) == 0 {
		return wrapper.Overrides, nil
	}
	return fromMap(wrapper.Overrides, wrapper.Classified)
}

// fromMap appends id->code pairs in ascending id order.
func fromMap(entries []Entry, classified map[string]string) ([]Entry, error) {
	ids := make([]int64, 0, len(classified))
	codes := make(map[int64]string, len(classified))
	for key, code := range classified {
		id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("classified key %q is not a movie id", key)
		}
		ids = append(ids, id)
		codes[id] = code
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		entries = append(entries, Entry{MovieID: id, Code: codes[id]})
	}
	return entries, nil
}

// Encode renders entries in the given format.
func Encode(entries []Entry, format Format) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	switch format {
	case FormatYAML:
		data, err := yaml.Marshal(entries)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return data, nil
	default:
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	}
}

func (e *Entry) normalize() {
	e.MovieName = strings.TrimSpace(e.MovieName)
	e.Code = textutil.NormalizeCode(e.Code)
}

func describe(index int, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("entry %d: %w", index, err)
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("entry %d: %s", index, strings.Join(parts, ", "))
}
