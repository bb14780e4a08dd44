// Package main is the entry point for the jamoveo server binary.
package main

import "os"

func main() {
	os.Exit(Execute())
}
