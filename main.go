package main

import "github.com/atomicobject/assetwatch/cmd"

func main() {
	cmd.Execute()
}
