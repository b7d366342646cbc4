// Package main provides the entry point for the sitecrawler CLI.
package main

func main() {
	Execute()
}
