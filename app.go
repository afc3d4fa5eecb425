package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/prometheus/client_golang/prometheus"

	"filediff/internal/cache"
	"filediff/internal/config"
	"filediff/internal/filediff"
	"filediff/internal/gitdiff"
	"filediff/internal/logging"
	"filediff/internal/metrics"
	"filediff/internal/render"
	"filediff/internal/repo"
)

// options collects the command line flags shared by all commands.
type options struct {
	configPath  string
	repoPath    string
	algorithm   string
	whitespace  string
	renameScore int
	paths       []string
	context     int
	hideRebase  bool
	stats       bool
}

// app wires the file diff cache to one repository.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	registry *prometheus.Registry
	repo     *git.Repository
	rootPath string
	project  string
	cache    *filediff.Cache
	store    *cache.RedisStore
	renderer *render.Renderer
}

func newApp(ctx context.Context, opts *options, override func(*config.Config), errOut io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid flags: %w", err)
		}
	}

	logger, err := logging.NewLogger(cfg.Level(), cfg.LogFile)
	if err != nil {
		fmt.Fprintf(errOut, "warning: %v\n", err)
	}
	if cfg.LogFile == "" {
		logger.SetOutput(errOut)
	}

	r, rootPath, err := openRepository(opts.repoPath)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	project := filepath.Base(rootPath)

	repos := repo.NewManager(cfg.ReposPath)
	repos.Register(project, r)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	provider := gitdiff.NewGitProvider(repos, cfg.DiffTimeout, logger)
	loader := filediff.NewLoader(repos, provider, logger, m)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: registry,
		repo:     r,
		rootPath: rootPath,
		project:  project,
		renderer: render.NewRenderer(),
	}
	a.renderer.Context = opts.context
	a.renderer.HideRebase = opts.hideRebase

	cacheOpts := filediff.CacheOptions{
		MaxWeight: cfg.MaxWeight,
		Logger:    logger,
		Metrics:   m,
	}
	if cfg.Redis.Addr != "" {
		store := cache.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Prefix, cfg.Redis.TTL)
		if err := store.Ping(ctx); err != nil {
			logger.WarnErr("redis not reachable, caching in memory only", err, map[string]any{
				"addr": cfg.Redis.Addr,
			})
			_ = store.Close()
		} else {
			cacheOpts.Store = store
			a.store = store
		}
	}
	a.cache = filediff.NewCache(loader, cacheOpts)

	logger.Info("filediff starting", map[string]any{
		"version": appVersion,
		"project": project,
		"root":    rootPath,
	})
	return a, nil
}

// Close releases the durable store and the log file.
func (a *app) Close() error {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.WarnErr("failed to close redis store", err, nil)
		}
	}
	return a.logger.Close()
}

func openRepository(path string) (*git.Repository, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	r, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{
		DetectDotGit: true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to open git repository at %s: %w", abs, err)
	}

	root := abs
	if worktree, err := r.Worktree(); err == nil {
		root = worktree.Filesystem.Root()
	}
	return r, root, nil
}

// resolveRange returns the commits named by args. A single revision is
// compared against its first parent, or against the empty tree when it is a
// root commit. No revision means HEAD.
func (a *app) resolveRange(args []string) (plumbing.Hash, plumbing.Hash, error) {
	newRev := "HEAD"
	if len(args) > 0 {
		newRev = args[len(args)-1]
	}
	newID, err := a.resolve(newRev)
	if err != nil {
		return plumbing.ZeroHash, plumbing.ZeroHash, err
	}
	if len(args) == 2 {
		oldID, err := a.resolve(args[0])
		if err != nil {
			return plumbing.ZeroHash, plumbing.ZeroHash, err
		}
		return oldID, newID, nil
	}

	c, err := a.repo.CommitObject(newID)
	if err != nil {
		return plumbing.ZeroHash, plumbing.ZeroHash, fmt.Errorf("failed to load commit %s: %w", newID, err)
	}
	if c.NumParents() == 0 {
		return plumbing.ZeroHash, newID, nil
	}
	return c.ParentHashes[0], newID, nil
}

func (a *app) resolve(rev string) (plumbing.Hash, error) {
	h, err := a.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("failed to resolve %s: %w", rev, err)
	}
	return *h, nil
}

// keys builds one cache key per path. Without explicit paths every file
// changed between the commits is requested, followed by the commit message.
func (a *app) keys(ctx context.Context, oldID, newID plumbing.Hash, paths []string) ([]filediff.Key, error) {
	if len(paths) == 0 {
		changed, err := a.changedPaths(ctx, oldID, newID)
		if err != nil {
			return nil, err
		}
		paths = append(changed, filediff.CommitMsgPath)
	}

	keys := make([]filediff.Key, 0, len(paths))
	for _, path := range paths {
		keys = append(keys, filediff.Key{
			Project:     a.project,
			OldCommit:   oldID,
			NewCommit:   newID,
			NewFilePath: path,
			RenameScore: a.cfg.RenameScore,
			Algorithm:   a.cfg.DiffAlgorithm(),
			Whitespace:  a.cfg.WhitespaceMode(),
		})
	}
	return keys, nil
}

func (a *app) changedPaths(ctx context.Context, oldID, newID plumbing.Hash) ([]string, error) {
	// A nil tree diffs as the empty tree.
	var oldTree *object.Tree
	if !oldID.IsZero() {
		var err error
		if oldTree, err = a.commitTree(oldID); err != nil {
			return nil, err
		}
	}
	newTree, err := a.commitTree(newID)
	if err != nil {
		return nil, err
	}

	opts := *object.DefaultDiffTreeOptions
	if a.cfg.RenameScore < 0 {
		opts.DetectRenames = false
	} else {
		opts.RenameScore = uint(a.cfg.RenameScore)
	}
	changes, err := object.DiffTreeWithOptions(ctx, oldTree, newTree, &opts)
	if err != nil {
		return nil, fmt.Errorf("failed to diff %s and %s: %w", oldID, newID, err)
	}

	paths := make([]string, 0, len(changes))
	for _, change := range changes {
		if change.To.Name != "" {
			paths = append(paths, change.To.Name)
		} else {
			paths = append(paths, change.From.Name)
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (a *app) commitTree(id plumbing.Hash) (*object.Tree, error) {
	c, err := a.repo.CommitObject(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load commit %s: %w", id, err)
	}
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to load tree of %s: %w", id, err)
	}
	return tree, nil
}

// renderFile attaches the content of both sides to out so the renderer can
// print the changed lines. Content that cannot be read is left out.
func (a *app) renderFile(out filediff.FileDiffOutput) render.File {
	f := render.File{Output: out}
	if out.Negative || out.PatchType == gitdiff.PatchBinary {
		return f
	}

	if filediff.IsMagicPath(out.NewPath) {
		session := repo.NewSession(a.project, a.repo)
		defer session.Close()
		f.NewLines = a.magicLines(session, out.NewPath, out.NewCommit)
		if out.OldPath != "" {
			f.OldLines = a.magicLines(session, out.OldPath, out.OldCommit)
		} else {
			f.OldLines = []string{}
		}
		return f
	}

	f.OldLines = a.fileLines(out.OldCommit, out.OldPath)
	f.NewLines = a.fileLines(out.NewCommit, out.NewPath)
	if f.OldLines == nil && f.NewLines == nil {
		return f
	}
	if f.OldLines == nil {
		f.OldLines = []string{}
	}
	if f.NewLines == nil {
		f.NewLines = []string{}
	}
	return f
}

func (a *app) magicLines(session *repo.Session, path string, id plumbing.Hash) []string {
	text, err := filediff.MagicText(session, path, id)
	if err != nil {
		a.logger.WarnErr("failed to read synthetic file", err, map[string]any{"path": path})
		return nil
	}
	return gitdiff.SplitLines(text)
}

func (a *app) fileLines(id plumbing.Hash, path string) []string {
	if id.IsZero() || path == "" {
		return nil
	}
	tree, err := a.commitTree(id)
	if err != nil {
		a.logger.WarnErr("failed to read file content", err, map[string]any{"path": path})
		return nil
	}
	file, err := tree.File(path)
	if err != nil {
		a.logger.WarnErr("failed to read file content", err, map[string]any{"path": path})
		return nil
	}
	content, err := file.Contents()
	if err != nil {
		a.logger.WarnErr("failed to read file content", err, map[string]any{"path": path})
		return nil
	}
	return gitdiff.SplitLines(content)
}
