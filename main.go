package main

import "github.com/liangyuanjiao/opencode-aicodewith-auth/cmd"

func main() {
	cmd.Execute()
}
