package doctor

import (
	"context"
	"path/filepath"

	"github.com/patrickmn/go-cache"

	"github.com/newhook/ralph-doctor/internal/git"
	"github.com/newhook/ralph-doctor/internal/host"
	"github.com/newhook/ralph-doctor/internal/runner"
)

// memo deduplicates identical external queries within one pass. Specs in the
// same repository share a git root and specs in the same project share a
// services directory. Callers always receive their own copy.
type memo struct {
	runner runner.Runner
	cache  *cache.Cache
}

func newMemo(r runner.Runner) *memo {
	return &memo{
		runner: r,
		cache:  cache.New(cache.NoExpiration, 0),
	}
}

func (m *memo) gitInfo(ctx context.Context, specDir string) *git.Info {
	root, ok := git.FindRepoRoot(specDir)
	if !ok {
		return nil
	}

	key := "git:" + root
	if v, found := m.cache.Get(key); found {
		return copyInfo(v.(*git.Info))
	}
	info := git.CollectRoot(ctx, m.runner, root)
	m.cache.SetDefault(key, info)
	return copyInfo(info)
}

func (m *memo) diskUsage(ctx context.Context, specDir, cacheDir string) map[string]string {
	key := "du:" + filepath.Clean(host.ServicesPath(specDir)) + ":" + cacheDir
	if v, found := m.cache.Get(key); found {
		return copyUsage(v.(map[string]string))
	}
	usage := host.DiskUsage(ctx, m.runner, specDir, cacheDir)
	m.cache.SetDefault(key, usage)
	return copyUsage(usage)
}

func copyInfo(info *git.Info) *git.Info {
	cp := *info
	cp.Commits = append([]string(nil), info.Commits...)
	return &cp
}

func copyUsage(usage map[string]string) map[string]string {
	cp := make(map[string]string, len(usage))
	for k, v := range usage {
		cp[k] = v
	}
	return cp
}
