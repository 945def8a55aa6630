package main

import "github.com/drgolem/fsbtools/cmd"

func main() {
	cmd.Execute()
}
