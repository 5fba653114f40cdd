package repository

import (
	"os"

	"github.com/go-git/go-git/v5/config"
	"go.uber.org/zap"
)

const (
	envAuthorName  = "GIT_AUTHOR_NAME"
	envAuthorEmail = "GIT_AUTHOR_EMAIL"

	defaultAuthorName  = "gitfs"
	defaultAuthorEmail = "gitfs@localhost"
)

// Identity of a commit author
type Identity struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email" yaml:"email"`
}

func (i Identity) String() string {
	return i.Name + " <" + i.Email + ">"
}

func (i Identity) complete() bool {
	return i.Name != "" && i.Email != ""
}

func (i *Identity) fill(name, email string) {
	if i.Name == "" {
		i.Name = name
	}
	if i.Email == "" {
		i.Email = email
	}
}

// resolveIdentity completes the identity set by options, looking in order at:
// the repository config (merged with the global config), the environment,
// then a fixed fallback.
func (h *Handle) resolveIdentity() Identity {
	id := h.identity
	if id.complete() {
		return id
	}

	cfg, err := h.repo.ConfigScoped(config.GlobalScope)
	if err != nil {
		h.l.Debug("could not read git config", zap.Error(err))
	} else {
		id.fill(cfg.User.Name, cfg.User.Email)
	}

	id.fill(os.Getenv(envAuthorName), os.Getenv(envAuthorEmail))
	id.fill(defaultAuthorName, defaultAuthorEmail)

	return id
}
