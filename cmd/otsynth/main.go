package main

import "github.com/OpenTraceLab/OpenTraceSynth/cmd/otsynth/cmd"

func main() {
	cmd.Execute()
}
