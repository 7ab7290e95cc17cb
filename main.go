package main

import "github.com/frahmantamala/opsboard/cmd"

func main() {
	cmd.Execute()
}
