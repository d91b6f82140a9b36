/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/Seann-Moser/useless/cmd"

func main() {
	cmd.Execute()
}
