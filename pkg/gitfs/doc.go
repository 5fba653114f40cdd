// Copyright © 2018 One Concern

/*
Package gitfs exposes one snapshot of a git repository as a file namespace.

A Namespace resolves a revision once and serves the committed tree of that revision:
paths map to entries (directories, regular or executable files), directories list
their children, and files stream the content of their blobs.

Mutations go through the working tree: a file is written there, then committed.
Every mutation yields exactly one new commit on the current branch. The snapshot
served by a Namespace is never refreshed by its own mutations: use Reload to build
a namespace on the new tip of the branch.

A Namespace is not safe for concurrent use.

NewAferoFs adapts a Namespace to the afero.Fs interface.
*/
package gitfs
