package main

import (
	"log"

	"github.com/tech-arch1tect/authstarter/app"
)

func main() {
	a, err := app.NewApp().WithAutoConfig().Build()
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	if err := a.Run(); err != nil {
		log.Fatalf("Application stopped with error: %v", err)
	}
}
