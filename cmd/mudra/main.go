package main

import (
	"github.com/ayusman/mudra/cmd/mudra/cmd"
)

func main() {
	cmd.Execute()
}
