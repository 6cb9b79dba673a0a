package main

import (
	"tunecast/cmd"
)

func main() {
	cmd.Execute()
}
