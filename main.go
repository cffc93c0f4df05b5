package main

import (
	"github.com/axellelanca/visittracker/cmd"
	_ "github.com/axellelanca/visittracker/cmd/cli"
	_ "github.com/axellelanca/visittracker/cmd/server"
)

func main() {
	cmd.Execute()
}
