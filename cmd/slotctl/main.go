package main

import (
	"context"
	"os"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
