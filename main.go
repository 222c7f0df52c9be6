package main

import "github.com/MeKo-Tech/tilemerge/internal/cmd"

func main() {
	cmd.Execute()
}
