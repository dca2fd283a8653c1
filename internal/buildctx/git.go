package buildctx

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Git variable names published by GitVariables.
const (
	GitCommit      = "GIT_COMMIT"
	GitShortCommit = "GIT_SHORT_COMMIT"
	GitBranch      = "GIT_BRANCH"
)

// ErrNotRepository indicates dir is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// GitVariables describes the HEAD of the repository enclosing dir. GIT_BRANCH is omitted
// when HEAD is detached, and a repository without commits yields no variables.
func GitVariables(dir string) (map[string]string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%s: %w", dir, ErrNotRepository)
		}
		return nil, fmt.Errorf("open repository at %s: %w", dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}

	hash := head.Hash().String()
	vars := map[string]string{
		GitCommit:      hash,
		GitShortCommit: hash[:7],
	}
	if head.Name().IsBranch() {
		vars[GitBranch] = head.Name().Short()
	}
	return vars, nil
}
