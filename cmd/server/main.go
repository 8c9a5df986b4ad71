package main

import (
	"listen/internal/bootstrap"
)

func main() {
	bootstrap.Run()
}
