// Package main is the entry point for the ccupdater c-shared library.
// This file is built with -buildmode=c-shared to create libccupdater.so
package main

import "C"

import (
	// Bridge exports all CGO functions to the host shim
	_ "github.com/corrreia/ccupdater/internal/bridge"
)

// main is required for c-shared build mode but is never called
func main() {}
