// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/gitfs/cmd/gitfs/cmd"
)

func main() {
	cmd.Execute()
}
