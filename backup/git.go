package backup

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"go.uber.org/zap"

	"github.com/teranos/restock/errors"
	"github.com/teranos/restock/logger"
)

// GitConfig describes where the snapshot is committed and pushed.
type GitConfig struct {
	RepoPath    string // any path inside the work tree
	FilePath    string // the snapshot file
	Remote      string
	Branch      string // empty pushes the remote's default refspec
	Username    string
	Token       string // empty pushes without auth (file and ssh-agent remotes)
	AuthorName  string
	AuthorEmail string
	Timeout     time.Duration
}

// GitSync commits the snapshot as a heartbeat and pushes it.
type GitSync struct {
	cfg    GitConfig
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewGitSync creates a GitSync. The repository is opened on each Sync so a
// repo created after startup is picked up.
func NewGitSync(cfg GitConfig, log *zap.SugaredLogger) *GitSync {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.Remote == "" {
		cfg.Remote = git.DefaultRemoteName
	}
	return &GitSync{cfg: cfg, logger: logger.AddBackupSymbol(log), now: time.Now}
}

// Sync stages the snapshot, commits "Heartbeat: HH:MM:SS" and pushes.
// A clean tree and an up-to-date remote both count as success.
func (g *GitSync) Sync(ctx context.Context) error {
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	repo, err := git.PlainOpenWithOptions(g.cfg.RepoPath, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return g.fail(err, "open repository %s", g.cfg.RepoPath)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return g.fail(err, "open worktree")
	}

	rel, err := relativeTo(wt.Filesystem.Root(), g.cfg.FilePath)
	if err != nil {
		return g.fail(err, "locate snapshot")
	}
	if _, err := wt.Add(rel); err != nil {
		return g.fail(err, "stage %s", rel)
	}

	now := g.now()
	hash, err := wt.Commit("Heartbeat: "+now.Format("15:04:05"), &git.CommitOptions{
		Author: &object.Signature{
			Name:  g.cfg.AuthorName,
			Email: g.cfg.AuthorEmail,
			When:  now,
		},
	})
	switch {
	case errors.Is(err, git.ErrEmptyCommit):
		g.logger.Debugw("Snapshot unchanged, nothing to commit", "file", rel)
	case err != nil:
		return g.fail(err, "commit %s", rel)
	default:
		g.logger.Debugw("Committed heartbeat", "commit", hash.String()[:7], "file", rel)
	}

	opts := &git.PushOptions{RemoteName: g.cfg.Remote, Auth: g.auth()}
	if g.cfg.Branch != "" {
		ref := "refs/heads/" + g.cfg.Branch
		opts.RefSpecs = []config.RefSpec{config.RefSpec(ref + ":" + ref)}
	}
	err = repo.PushContext(ctx, opts)
	switch {
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		g.logger.Debugw("Remote already up to date", "remote", g.cfg.Remote)
		return nil
	case err != nil:
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = errors.Mark(err, errors.ErrTimeout)
		}
		return g.fail(err, "push to %s", g.cfg.Remote)
	}

	g.logger.Infow("Pushed heartbeat", "remote", g.cfg.Remote, "file", rel)
	return nil
}

func (g *GitSync) auth() transport.AuthMethod {
	if g.cfg.Token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: g.cfg.Username, Password: g.cfg.Token}
}

func (g *GitSync) fail(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), errors.ErrBackupFailed)
}

// relativeTo returns file as a slash path relative to root. Symlinks are
// resolved on both sides so /var vs /private/var style aliases still match.
func relativeTo(root, file string) (string, error) {
	absFile, err := filepath.Abs(file)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(absFile); err == nil {
		absFile = resolved
	}
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}
	rel, err := filepath.Rel(root, absFile)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Newf("%s is outside the repository at %s", file, root)
	}
	return filepath.ToSlash(rel), nil
}
