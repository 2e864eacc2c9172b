//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
)

type Build mg.Namespace

// Tidies the modules and builds the playground binary into bin/.
func (Build) Engine() error {
	if _, err := executeCmd("go", withArgs("mod", "tidy")); err != nil {
		return err
	}
	_, err := executeCmd("go", withArgs("build", "-o", "bin/playground", "."), withStream())
	return err
}

// Runs go vet on every package.
func (Build) Vet() error {
	_, err := executeCmd("go", withArgs("vet", "./..."), withStream())
	return err
}
