//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "flashpix"
	mainPath   = "./cmd/flashpix"
)

// Default target to run when none is specified
var Default = Build

// Build builds the flashpix binary
func Build() error {
	fmt.Println("Building", binaryName)
	return sh.RunV("go", "build", "-o", binaryName, mainPath)
}

// Install installs flashpix into GOPATH/bin
func Install() error {
	mg.Deps(Test)
	fmt.Println("Installing", binaryName)
	return sh.RunV("go", "install", mainPath)
}

// Test runs all tests
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Vet runs go vet
func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Coverage writes coverage.html
func Coverage() error {
	if err := sh.RunV("go", "test", "-coverprofile=coverage.out", "./..."); err != nil {
		return err
	}
	return sh.RunV("go", "tool", "cover", "-html=coverage.out", "-o", "coverage.html")
}

// Clean removes build artifacts
func Clean() error {
	for _, f := range []string{binaryName, "coverage.out", "coverage.html"} {
		if err := sh.Rm(f); err != nil {
			return err
		}
	}
	return nil
}
