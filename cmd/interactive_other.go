//go:build !windows

package main

// enableVT is a no-op: Unix terminals interpret ANSI sequences natively.
func enableVT() {}
