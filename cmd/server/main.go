package main

import (
	"context"
	"fmt"
	"os"

	"github.com/printshelf/printshelf/internal/app"
)

func main() {
	ctx := context.Background()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "printshelf: %v\n", err)
		os.Exit(1)
	}
	if err := a.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "printshelf: %v\n", err)
		os.Exit(1)
	}
}
