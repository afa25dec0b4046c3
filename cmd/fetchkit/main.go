package main

import cmd "github.com/rohmanhakim/fetchkit/internal/cli"

func main() {
	cmd.Execute()
}
