package main

import "github.com/ziadkadry99/voicedesk/cmd"

func main() {
	cmd.Execute()
}
