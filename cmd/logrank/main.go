package main

import "github.com/atikulmunna/logrank/internal/cmd"

func main() {
	cmd.Execute()
}
