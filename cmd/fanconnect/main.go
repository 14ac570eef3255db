package main

import (
	"github.com/fanconnect/server/internal/server"
)

func main() {
	server.NewFromEnv().Run()
}
