// Copyright © 2018 One Concern

// Package repository opens the git repository backing a namespace.
//
// A Handle gives access to the object store and the ref store, through go-git.
// It also knows about the working tree, if any, and about the identity
// used to sign new commits.
package repository
