package repository

import (
	"go.uber.org/zap"
)

// Option to open a repository handle
type Option func(*Handle)

// Logger for this handle
func Logger(l *zap.Logger) Option {
	return func(h *Handle) {
		if l != nil {
			h.l = l
		}
	}
}

// Author sets the identity used for commits, overriding any configured user
func Author(name, email string) Option {
	return func(h *Handle) {
		h.identity.Name = name
		h.identity.Email = email
	}
}
