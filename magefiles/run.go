//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

type Run mg.Namespace

// Runs the testbed with a window and the Vulkan renderer.
func (Run) Engine() error {
	fmt.Println("Run engine...")
	_, err := executeCmd("go", withArgs("run", ".", "-config", "playground.toml"), withStream())
	return err
}

// Runs the testbed without a window on the headless renderer.
func (Run) Headless() error {
	fmt.Println("Run engine headless...")
	_, err := executeCmd("go", withArgs("run", ".", "-config", "playground.toml", "-headless"), withStream())
	return err
}
