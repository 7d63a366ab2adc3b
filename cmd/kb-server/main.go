package main

import (
	_ "go.uber.org/automaxprocs/maxprocs"

	"github.com/kart-io/knowledge-x/cmd/kb-server/app"
)

func main() {
	app.NewApp().Run()
}
