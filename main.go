/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/mangashelf/apiserver/cmd"

func main() {
	cmd.Execute()
}
