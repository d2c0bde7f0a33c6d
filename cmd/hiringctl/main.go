package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/hiringhub/internal/admin"
)

func main() {
	if err := admin.Execute(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
