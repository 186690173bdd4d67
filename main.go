package main

import "github.com/itish2003/sectionrag/cmd"

func main() {
	cmd.Execute()
}
