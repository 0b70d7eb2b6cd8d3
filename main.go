package main

import (
	"os"

	"github.com/GoStorefront-Admin/GoStorefront-Admin/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
