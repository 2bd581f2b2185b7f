package main

import (
	"errors"
	"fmt"
	"os"

	"web/cellcluster/cluster"
	"web/cellcluster/dataset"
	"web/cellcluster/internal/cli"
)

func main() {
	if err := cli.NewRootCommand(cli.DefaultEnv()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode distinguishes bad input from other failures.
func exitCode(err error) int {
	var parseErr *dataset.ParseError
	var domainErr *cluster.DomainError
	switch {
	case errors.As(err, &parseErr), errors.As(err, &domainErr),
		errors.Is(err, cluster.ErrInvalidRadius), errors.Is(err, cluster.ErrGridTooLarge):
		return 2
	default:
		return 1
	}
}
