package main

import "github.com/ValentinKolb/aesdlog/cmd"

func main() {
	cmd.Execute()
}
