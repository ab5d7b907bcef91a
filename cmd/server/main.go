package main

import "github.com/eleven-am/voice-subtitles/internal/bootstrap"

func main() {
	bootstrap.Run()
}
