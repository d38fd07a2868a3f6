// Package gitctx gathers repository state (branch, status, recent commits,
// recently changed files) for prompt injection, behind a short TTL cache.
package gitctx

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const gitTimeout = 5 * time.Second

// Commit is one entry from the recent git log
type Commit struct {
	Hash    string `json:"hash"`
	Subject string `json:"subject"`
	Author  string `json:"author"`
	Age     string `json:"age"`
}

// FileInfo describes a recently changed file
type FileInfo struct {
	Path      string    `json:"path"`
	Modified  time.Time `json:"modified"`
	Size      int64     `json:"size"`
	Extension string    `json:"extension"`
}

// Snapshot is the full context gathered for one point in time
type Snapshot struct {
	Timestamp     time.Time  `json:"timestamp"`
	Branch        string     `json:"branch"`
	Dirty         bool       `json:"dirty"`
	RecentCommits []Commit   `json:"recent_commits"`
	ActiveFiles   []FileInfo `json:"active_files"`
	ProjectRoot   string     `json:"project_root"`
}

// runner executes a git subcommand; swapped out in tests
type runner func(ctx context.Context, dir string, args ...string) (string, error)

func execGit(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, gitTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// Manager gathers snapshots with a file-backed TTL cache
type Manager struct {
	root       string
	cachePath  string
	ttl        time.Duration
	maxFiles   int
	maxCommits int
	git        runner
	now        func() time.Time
}

// New creates a context manager for the given project root
func New(root string, ttl time.Duration, maxFiles, maxCommits int) *Manager {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if maxFiles <= 0 {
		maxFiles = 10
	}
	if maxCommits <= 0 {
		maxCommits = 10
	}
	return &Manager{
		root:       root,
		cachePath:  filepath.Join(root, ".payready", "context_cache.json"),
		ttl:        ttl,
		maxFiles:   maxFiles,
		maxCommits: maxCommits,
		git:        execGit,
		now:        time.Now,
	}
}

// Current returns the cached snapshot when fresh, otherwise gathers a new
// one. Gathering is best-effort: git failures produce a partial snapshot.
func (m *Manager) Current(ctx context.Context) *Snapshot {
	if snap := m.loadCache(); snap != nil {
		return snap
	}

	snap := &Snapshot{
		Timestamp:   m.now(),
		ProjectRoot: m.root,
	}

	if branch, err := m.git(ctx, m.root, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		snap.Branch = branch
	}
	if status, err := m.git(ctx, m.root, "status", "--porcelain"); err == nil {
		snap.Dirty = status != ""
	}
	snap.RecentCommits = m.recentCommits(ctx)
	snap.ActiveFiles = m.activeFiles(ctx)

	m.saveCache(snap)
	return snap
}

func (m *Manager) recentCommits(ctx context.Context) []Commit {
	out, err := m.git(ctx, m.root, "log", "--oneline", fmt.Sprintf("-%d", m.maxCommits), "--format=%H|%s|%an|%ar")
	if err != nil || out == "" {
		return nil
	}

	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		parts := strings.SplitN(line, "|", 4)
		if len(parts) != 4 {
			continue
		}
		commits = append(commits, Commit{Hash: parts[0], Subject: parts[1], Author: parts[2], Age: parts[3]})
	}
	return commits
}

func (m *Manager) activeFiles(ctx context.Context) []FileInfo {
	out, err := m.git(ctx, m.root, "diff", "--name-only", "HEAD~1")
	if err != nil || out == "" {
		return nil
	}

	var files []FileInfo
	for _, rel := range strings.Split(out, "\n") {
		rel = strings.TrimSpace(rel)
		if rel == "" {
			continue
		}
		full := filepath.Join(m.root, rel)
		stat, err := os.Stat(full)
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Path:      rel,
			Modified:  stat.ModTime(),
			Size:      stat.Size(),
			Extension: filepath.Ext(rel),
		})
		if len(files) >= m.maxFiles {
			break
		}
	}
	return files
}

// loadCache returns the persisted snapshot if it is younger than the TTL
func (m *Manager) loadCache() *Snapshot {
	data, err := os.ReadFile(m.cachePath)
	if err != nil {
		return nil
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil
	}
	if m.now().Sub(snap.Timestamp) > m.ttl {
		return nil
	}
	return &snap
}

func (m *Manager) saveCache(snap *Snapshot) {
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(m.cachePath), 0755); err != nil {
		return
	}
	_ = os.WriteFile(m.cachePath, data, 0644)
}

// PromptBlock renders the snapshot as a context block for prompt injection
func (s *Snapshot) PromptBlock() string {
	var sb strings.Builder
	sb.WriteString("## Project Context\n\n")
	fmt.Fprintf(&sb, "Date: %s\n", s.Timestamp.Format("2006-01-02"))
	if s.Branch != "" {
		state := "clean"
		if s.Dirty {
			state = "uncommitted changes"
		}
		fmt.Fprintf(&sb, "Git branch: %s (%s)\n", s.Branch, state)
	}
	if len(s.RecentCommits) > 0 {
		sb.WriteString("\nRecent commits:\n")
		for _, c := range s.RecentCommits {
			fmt.Fprintf(&sb, "- %s (%s, %s)\n", c.Subject, c.Author, c.Age)
		}
	}
	if len(s.ActiveFiles) > 0 {
		sb.WriteString("\nRecently changed files:\n")
		for _, f := range s.ActiveFiles {
			fmt.Fprintf(&sb, "- %s (%d bytes)\n", f.Path, f.Size)
		}
	}
	return sb.String()
}
