package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Entry is one parsed JSON log record.
type Entry struct {
	Time  time.Time
	Level string
	Msg   string
	Attrs map[string]any
	// Raw is the original line; lines that are not JSON are shown as is.
	Raw   string
	Valid bool
}

// ViewerConfig configures the log viewer.
type ViewerConfig struct {
	Level   string         // Minimum level shown
	Pattern *regexp.Regexp // Raw line must match
	NoColor bool
}

// Viewer reads, filters and formats log files.
type Viewer struct {
	config ViewerConfig
	out    io.Writer
	poll   time.Duration
}

var (
	timeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	attrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	levelStyles = map[string]lipgloss.Style{
		"DEBUG": lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		"INFO":  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"WARN":  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		"ERROR": lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// NewViewer creates a viewer writing formatted entries to out.
func NewViewer(cfg ViewerConfig, out io.Writer) *Viewer {
	return &Viewer{config: cfg, out: out, poll: 100 * time.Millisecond}
}

// FindLogFile returns explicit when given, else the active log file in dir.
func FindLogFile(dir, explicit string) (string, error) {
	path := explicit
	if path == "" {
		path = LogPath(dir)
	}
	if _, err := os.Stat(path); err != nil {
		if explicit != "" {
			return "", fmt.Errorf("log file not found: %s", explicit)
		}
		return "", fmt.Errorf("no log file found at %s\nRun a command with --debug, or start 'docsmcp serve', to produce logs", path)
	}
	return path, nil
}

// Tail returns the matching entries among the last n lines of path.
func (v *Viewer) Tail(path string, n int) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if n <= 0 {
		return nil, nil
	}

	// Ring of the last n lines.
	ring := make([]string, 0, n)
	next := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) < n {
			ring = append(ring, scanner.Text())
			continue
		}
		ring[next] = scanner.Text()
		next = (next + 1) % n
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	lines := append(ring[next:len(ring):len(ring)], ring[:next]...)
	var entries []Entry
	for _, line := range lines {
		e := ParseLine(line)
		if v.Matches(e) {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

// Follow sends entries appended to path until ctx is done. A file that
// shrinks (rotated) is reopened from the start.
func (v *Viewer) Follow(ctx context.Context, path string, entries chan<- Entry) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	offset, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("failed to seek to end: %w", err)
	}
	reader := bufio.NewReader(f)

	ticker := time.NewTicker(v.poll)
	defer ticker.Stop()

	var partial strings.Builder
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if info, err := os.Stat(path); err == nil && info.Size() < offset {
			_ = f.Close()
			if f, err = os.Open(path); err != nil {
				return fmt.Errorf("failed to reopen rotated log: %w", err)
			}
			offset = 0
			reader.Reset(f)
			partial.Reset()
		}

		for {
			chunk, err := reader.ReadString('\n')
			offset += int64(len(chunk))
			partial.WriteString(chunk)
			if err != nil {
				break
			}
			line := strings.TrimRight(partial.String(), "\r\n")
			partial.Reset()
			if line == "" {
				continue
			}
			e := ParseLine(line)
			if !v.Matches(e) {
				continue
			}
			select {
			case entries <- e:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// ParseLine parses a JSON log line written by the slog JSON handler.
func ParseLine(line string) Entry {
	e := Entry{Raw: line}

	var data map[string]any
	if err := json.Unmarshal([]byte(line), &data); err != nil {
		return e
	}
	e.Valid = true

	if t, ok := data["time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			e.Time = parsed
		}
	}
	if l, ok := data["level"].(string); ok {
		e.Level = l
	}
	if m, ok := data["msg"].(string); ok {
		e.Msg = m
	}

	e.Attrs = make(map[string]any, len(data))
	for k, val := range data {
		switch k {
		case "time", "level", "msg":
		default:
			e.Attrs[k] = val
		}
	}
	return e
}

// Matches reports whether e passes the level and pattern filters.
func (v *Viewer) Matches(e Entry) bool {
	if v.config.Level != "" && e.Valid {
		if LevelFromString(e.Level) < LevelFromString(v.config.Level) {
			return false
		}
	}
	if v.config.Pattern != nil && !v.config.Pattern.MatchString(e.Raw) {
		return false
	}
	return true
}

// Format renders an entry as "15:04:05.000 LEVEL msg k=v ...", with
// attributes sorted by key.
func (v *Viewer) Format(e Entry) string {
	if !e.Valid {
		return e.Raw
	}

	level := strings.ToUpper(e.Level)
	if len(level) > 5 {
		level = level[:5]
	}
	level = fmt.Sprintf("%-5s", level)

	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	attrs := make([]string, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, fmt.Sprintf("%s=%v", k, e.Attrs[k]))
	}

	ts := e.Time.Format("15:04:05.000")
	attrText := strings.Join(attrs, " ")
	if !v.config.NoColor {
		ts = timeStyle.Render(ts)
		if style, ok := levelStyles[strings.TrimSpace(level)]; ok {
			level = style.Render(level)
		}
		if attrText != "" {
			attrText = attrStyle.Render(attrText)
		}
	}

	if attrText == "" {
		return fmt.Sprintf("%s %s %s", ts, level, e.Msg)
	}
	return fmt.Sprintf("%s %s %s %s", ts, level, e.Msg, attrText)
}

// Print writes entries to the viewer's output.
func (v *Viewer) Print(entries []Entry) {
	for _, e := range entries {
		_, _ = fmt.Fprintln(v.out, v.Format(e))
	}
}
